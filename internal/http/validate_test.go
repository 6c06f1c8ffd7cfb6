package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestSanitizeContent(t *testing.T) {
	cases := []struct{ in, want string }{
		{"  hello   world  ", "hello world"},
		{"one\t\ttwo\n\nthree", "one two three"},
		{"already clean", "already clean"},
		{"   ", ""},
	}
	for _, c := range cases {
		require.Equal(t, c.want, sanitizeContent(c.in))
	}
}

func TestNormalizeTags(t *testing.T) {
	got := normalizeTags([]string{" Health ", "DIABETES!", "#mental-health", "", "!!!"})
	require.Equal(t, []string{"health", "diabetes", "mentalhealth"}, got)
}

func TestReadingTime(t *testing.T) {
	require.Equal(t, 0, readingTime(""))
	require.Equal(t, 1, readingTime("one two three"))
	require.Equal(t, 3, readingTime(strings.Repeat("word ", 401)))
}

func TestPagination(t *testing.T) {
	meta := pagination(2, 20, 45)
	require.Equal(t, int64(2), meta["currentPage"])
	require.Equal(t, int64(3), meta["totalPages"])
	require.Equal(t, int64(45), meta["totalPosts"])
	require.Equal(t, true, meta["hasNextPage"])
	require.Equal(t, true, meta["hasPrevPage"])

	require.Equal(t, false, pagination(1, 20, 45)["hasPrevPage"])
	require.Equal(t, false, pagination(3, 20, 45)["hasNextPage"])
	require.Equal(t, int64(0), pagination(1, 20, 0)["totalPages"])
}

func TestFieldMessages_ValidatorTags(t *testing.T) {
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
		Phone    string `validate:"len=10"`
	}
	err := validator.New().Struct(form{Email: "not-an-email", Password: "short", Phone: "123"})
	msgs := fieldMessages(err)
	require.Len(t, msgs, 3)
	require.Contains(t, msgs, "email must be a valid email address")
	require.Contains(t, msgs, "password must be at least 8 characters")
	require.Contains(t, msgs, "phone must be exactly 10 characters")
}

func TestFieldMessages_NonValidatorError(t *testing.T) {
	msgs := fieldMessages(errors.New("unexpected EOF"))
	require.Equal(t, []string{"Invalid request body"}, msgs)
}
