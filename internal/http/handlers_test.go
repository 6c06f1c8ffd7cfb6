package http_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
)

func Test_Register_Verify_Login_Profile(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	cookies := env.signup("anna@example.com", "StrongP@ss1", "Anna", "Ivanova")

	// duplicate email must bounce
	w := env.do("POST", "/auth/register",
		`{"firstName":"Anna","lastName":"Again","email":"anna@example.com","phone":"5551234567","password":"StrongP@ss1","confirmPassword":"StrongP@ss1"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: %d %s", w.Code, w.Body.String())
	}

	// registration auto-provisions a profile
	w = env.do("GET", "/user-profile", "", cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("get my profile: %d %s", w.Code, w.Body.String())
	}
	var pr struct {
		Profile struct {
			Verification struct {
				Status string `json:"status"`
			} `json:"verification"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &pr); err != nil {
		t.Fatalf("profile parse: %v", err)
	}
	if pr.Profile.Verification.Status != "pending" {
		t.Fatalf("new profile verification = %q, want pending", pr.Profile.Verification.Status)
	}

	// profile update rejects out-of-range bio but takes valid fields
	w = env.do("PUT", "/user-profile", `{"gender":"female","bio":"Runner and amateur chef"}`, cookies)
	if w.Code != http.StatusOK {
		t.Fatalf("update profile: %d %s", w.Code, w.Body.String())
	}
}

func Test_Login_UniformError(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	env.signup("bob@example.com", "StrongP@ss1", "Bob", "Petrov")

	wUnknown := env.do("POST", "/auth/login", `{"email":"ghost@example.com","password":"whatever1"}`, nil)
	wWrongPw := env.do("POST", "/auth/login", `{"email":"bob@example.com","password":"wrongpass1"}`, nil)

	if wUnknown.Code != http.StatusBadRequest || wWrongPw.Code != http.StatusBadRequest {
		t.Fatalf("codes: unknown=%d wrongpw=%d", wUnknown.Code, wWrongPw.Code)
	}
	type errResp struct {
		Message string `json:"message"`
	}
	var a, b errResp
	_ = json.Unmarshal(wUnknown.Body.Bytes(), &a)
	_ = json.Unmarshal(wWrongPw.Body.Bytes(), &b)
	if a.Message != b.Message {
		t.Fatalf("error text differs: %q vs %q", a.Message, b.Message)
	}
}

func Test_PasswordReset_Flow(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	env.signup("carol@example.com", "StrongP@ss1", "Carol", "Smith")

	w := env.do("POST", "/auth/forget-password", `{"email":"carol@example.com"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("forget-password: %d %s", w.Code, w.Body.String())
	}

	var doc struct {
		Code string `bson:"reset_code"`
	}
	if err := env.Store.DB.Collection("users").
		FindOne(env.Ctx, map[string]any{"email": "carol@example.com"}).Decode(&doc); err != nil {
		t.Fatalf("read reset code: %v", err)
	}

	w = env.do("PUT", "/auth/reset-password/"+doc.Code, `{"newPassword":"N3wStrongP@ss"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reset-password: %d %s", w.Code, w.Body.String())
	}

	// the code is single-use
	w = env.do("PUT", "/auth/reset-password/"+doc.Code, `{"newPassword":"AnotherP@ss1"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reused reset code: %d %s", w.Code, w.Body.String())
	}

	// old password out, new password in
	w = env.do("POST", "/auth/login", `{"email":"carol@example.com","password":"StrongP@ss1"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("old password still works: %d", w.Code)
	}
	w = env.do("POST", "/auth/login", `{"email":"carol@example.com","password":"N3wStrongP@ss"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("login after reset: %d %s", w.Code, w.Body.String())
	}
}

func Test_Post_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("dora@example.com", "StrongP@ss1", "Dora", "Lee")
	other := env.signup("evan@example.com", "StrongP@ss1", "Evan", "Kim")

	w := env.do("POST", "/posts",
		`{"type":"text","content":"Managing #diabetes with daily walks","tags":["Health"]}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create post: %d %s", w.Code, w.Body.String())
	}
	var cr struct {
		Post struct {
			ID       string   `json:"id"`
			Keywords []string `json:"searchKeywords"`
		} `json:"post"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &cr); err != nil || cr.Post.ID == "" {
		t.Fatalf("create parse: %v body=%s", err, w.Body.String())
	}

	// two anonymous reads, each one counts
	for i := 0; i < 2; i++ {
		w = env.do("GET", "/posts/"+cr.Post.ID, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("get post: %d %s", w.Code, w.Body.String())
		}
	}
	var gr struct {
		Post struct {
			ViewCount int64 `json:"viewCount"`
		} `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &gr)
	if gr.Post.ViewCount != 2 {
		t.Fatalf("viewCount = %d, want 2", gr.Post.ViewCount)
	}

	// search by derived keyword
	w = env.do("GET", "/posts/search?q=diabetes", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search: %d %s", w.Code, w.Body.String())
	}
	var sr struct {
		Posts []json.RawMessage `json:"posts"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &sr)
	if len(sr.Posts) != 1 {
		t.Fatalf("search hits = %d, want 1", len(sr.Posts))
	}

	// only the author can edit or delete
	w = env.do("PUT", "/posts/"+cr.Post.ID, `{"content":"hijacked"}`, other)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign update: %d %s", w.Code, w.Body.String())
	}
	w = env.do("DELETE", "/posts/"+cr.Post.ID, "", other)
	if w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete: %d %s", w.Code, w.Body.String())
	}

	// author soft-deletes; the post drops off read surfaces
	w = env.do("DELETE", "/posts/"+cr.Post.ID, "", author)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/posts/"+cr.Post.ID, "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted post still readable: %d", w.Code)
	}
}

func Test_Post_RateLimit(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("frank@example.com", "StrongP@ss1", "Frank", "Novak")

	for i := 0; i < 10; i++ {
		w := env.do("POST", "/posts",
			fmt.Sprintf(`{"type":"text","content":"post number %d in the hour"}`, i), author)
		if w.Code != http.StatusCreated {
			t.Fatalf("post %d: %d %s", i, w.Code, w.Body.String())
		}
	}
	w := env.do("POST", "/posts", `{"type":"text","content":"one over the cap"}`, author)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("11th post: %d %s", w.Code, w.Body.String())
	}
	var rr struct {
		RetryAfter int `json:"retryAfter"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &rr)
	if rr.RetryAfter != 3600 {
		t.Fatalf("retryAfter = %d, want 3600", rr.RetryAfter)
	}
}

func Test_Moderation_RemovedHidesPost(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("gina@example.com", "StrongP@ss1", "Gina", "Moro")
	env.signup("admin@example.com", "StrongP@ss1", "Ada", "Root")
	env.makeAdmin("admin@example.com")
	// re-login so the session reflects the admin role
	w := env.do("POST", "/auth/login", `{"email":"admin@example.com","password":"StrongP@ss1"}`, nil)
	admin := w.Result().Cookies()

	w = env.do("POST", "/posts", `{"type":"text","content":"soon to be removed"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var cr struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &cr)

	// a non-admin cannot moderate
	w = env.do("PATCH", "/posts/"+cr.Post.ID+"/moderate", `{"status":"removed","reason":"spam"}`, author)
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin moderate: %d %s", w.Code, w.Body.String())
	}

	w = env.do("PATCH", "/posts/"+cr.Post.ID+"/moderate", `{"status":"removed","reason":"spam"}`, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("moderate: %d %s", w.Code, w.Body.String())
	}

	// removed means gone from every read surface, even for the author
	w = env.do("GET", "/posts/"+cr.Post.ID, "", author)
	if w.Code != http.StatusNotFound {
		t.Fatalf("removed post readable: %d %s", w.Code, w.Body.String())
	}
	// and frozen: even the author cannot edit it back
	w = env.do("PUT", "/posts/"+cr.Post.ID, `{"content":"rewritten"}`, author)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("removed post editable: %d %s", w.Code, w.Body.String())
	}
	w = env.do("GET", "/posts", "", nil)
	var lr struct {
		Pagination struct {
			TotalPosts int64 `json:"totalPosts"`
		} `json:"pagination"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &lr)
	if lr.Pagination.TotalPosts != 0 {
		t.Fatalf("removed post still listed: %+v", lr)
	}
}

func Test_Engagement_NeverNegative(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("hugo@example.com", "StrongP@ss1", "Hugo", "Silva")

	w := env.do("POST", "/posts", `{"type":"text","content":"like me maybe"}`, author)
	var cr struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &cr)

	w = env.do("POST", "/posts/"+cr.Post.ID+"/engagement", `{"metric":"likes","action":"increment"}`, author)
	if w.Code != http.StatusOK {
		t.Fatalf("like: %d %s", w.Code, w.Body.String())
	}
	// unlike twice: second one is a no-op at zero
	for i := 0; i < 2; i++ {
		w = env.do("POST", "/posts/"+cr.Post.ID+"/engagement", `{"metric":"likes","action":"decrement"}`, author)
		if w.Code != http.StatusOK {
			t.Fatalf("unlike %d: %d %s", i, w.Code, w.Body.String())
		}
	}
	var er struct {
		Eng struct {
			Likes int64 `json:"likes"`
		} `json:"eng"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &er)
	if er.Eng.Likes != 0 {
		t.Fatalf("likes = %d, want 0", er.Eng.Likes)
	}
}

func Test_PrivatePost_Visibility(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("iris@example.com", "StrongP@ss1", "Iris", "West")
	other := env.signup("jack@example.com", "StrongP@ss1", "Jack", "Ryan")

	w := env.do("POST", "/posts", `{"type":"text","content":"my private journal entry","visibility":"private"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create private: %d %s", w.Code, w.Body.String())
	}
	var cr struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &cr)

	if w = env.do("GET", "/posts/"+cr.Post.ID, "", author); w.Code != http.StatusOK {
		t.Fatalf("author read: %d %s", w.Code, w.Body.String())
	}
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", other); w.Code != http.StatusForbidden {
		t.Fatalf("foreign read: %d %s", w.Code, w.Body.String())
	}
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", nil); w.Code != http.StatusForbidden {
		t.Fatalf("anonymous read: %d %s", w.Code, w.Body.String())
	}

	// private posts never show up in the public feed
	w = env.do("GET", "/posts", "", nil)
	var lr struct {
		Pagination struct {
			TotalPosts int64 `json:"totalPosts"`
		} `json:"pagination"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &lr)
	if lr.Pagination.TotalPosts != 0 {
		t.Fatalf("private post leaked into feed: %+v", lr)
	}
}

func Test_CommunityFeed_ExcludesPrivate(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("kara@example.com", "StrongP@ss1", "Kara", "Danvers")
	member := env.signup("liam@example.com", "StrongP@ss1", "Liam", "Chen")

	communityID := "64f000000000000000000001"
	w := env.do("POST", "/posts",
		`{"type":"text","content":"visible community update","visibility":"community","communityId":"`+communityID+`"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create community post: %d %s", w.Code, w.Body.String())
	}
	w = env.do("POST", "/posts",
		`{"type":"text","content":"private note kept inside the community","visibility":"private","communityId":"`+communityID+`"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create private post: %d %s", w.Code, w.Body.String())
	}

	// another authenticated member sees only the non-private post
	w = env.do("GET", "/posts?communityId="+communityID, "", member)
	if w.Code != http.StatusOK {
		t.Fatalf("community feed: %d %s", w.Code, w.Body.String())
	}
	var fr struct {
		Posts []struct {
			Visibility string `json:"visibility"`
		} `json:"posts"`
		Pagination struct {
			TotalPosts int64 `json:"totalPosts"`
		} `json:"pagination"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &fr)
	if fr.Pagination.TotalPosts != 1 || len(fr.Posts) != 1 {
		t.Fatalf("private post leaked into community feed: %s", w.Body.String())
	}
	if fr.Posts[0].Visibility != "community" {
		t.Fatalf("unexpected visibility in feed: %s", w.Body.String())
	}

	// anonymous callers get turned away before any query runs
	if w = env.do("GET", "/posts?communityId="+communityID, "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous community feed: %d %s", w.Code, w.Body.String())
	}
}

func Test_MyPosts_Route(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("mona@example.com", "StrongP@ss1", "Mona", "Vale")
	w := env.do("POST", "/posts", `{"type":"text","content":"mine and only mine"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/posts/my-posts", "", author)
	if w.Code != http.StatusOK {
		t.Fatalf("my-posts: %d %s", w.Code, w.Body.String())
	}
	var lr struct {
		Pagination struct {
			TotalPosts int64 `json:"totalPosts"`
		} `json:"pagination"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &lr)
	if lr.Pagination.TotalPosts != 1 {
		t.Fatalf("my-posts count = %d, want 1", lr.Pagination.TotalPosts)
	}

	if w = env.do("GET", "/posts/my-posts", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous my-posts: %d %s", w.Code, w.Body.String())
	}
}

func Test_FlaggedPost_ReadGate(t *testing.T) {
	env := newTestEnv(t)
	defer env.Close()

	author := env.signup("nora@example.com", "StrongP@ss1", "Nora", "Quinn")
	other := env.signup("omar@example.com", "StrongP@ss1", "Omar", "Aziz")
	env.signup("root@example.com", "StrongP@ss1", "Rhea", "Root")
	env.makeAdmin("root@example.com")
	w := env.do("POST", "/auth/login", `{"email":"root@example.com","password":"StrongP@ss1"}`, nil)
	admin := w.Result().Cookies()

	w = env.do("POST", "/posts", `{"type":"text","content":"under review soon"}`, author)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var cr struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &cr)

	w = env.do("PATCH", "/posts/"+cr.Post.ID+"/moderate", `{"status":"flagged","reason":"reported"}`, admin)
	if w.Code != http.StatusOK {
		t.Fatalf("flag: %d %s", w.Code, w.Body.String())
	}

	// author and admin still read it; everyone else is blocked
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", author); w.Code != http.StatusOK {
		t.Fatalf("author read flagged: %d %s", w.Code, w.Body.String())
	}
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", admin); w.Code != http.StatusOK {
		t.Fatalf("admin read flagged: %d %s", w.Code, w.Body.String())
	}
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", other); w.Code != http.StatusForbidden {
		t.Fatalf("stranger read flagged: %d %s", w.Code, w.Body.String())
	}
	if w = env.do("GET", "/posts/"+cr.Post.ID, "", nil); w.Code != http.StatusForbidden {
		t.Fatalf("anonymous read flagged: %d %s", w.Code, w.Body.String())
	}
}
