package mail

const verificationTemplate = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Verify your email address</h2>
<p>Thanks for signing up. Enter this code to verify your email address:</p>
<p style="font-size:32px;letter-spacing:6px;font-weight:bold">{code}</p>
<p>The code expires in 1 hour. If you didn't create an account, ignore this email.</p>
</div>`

const welcomeTemplate = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Welcome, {firstName}!</h2>
<p>Your email is verified and your account is active. We're glad to have you.</p>
</div>`

const resetRequestTemplate = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Password reset request</h2>
<p>We received a request to reset your password. Click the link below to continue:</p>
<p><a href="{resetURL}">{resetURL}</a></p>
<p>The link expires in 1 hour. If you didn't request this, ignore this email.</p>
</div>`

const resetSuccessTemplate = `<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto">
<h2>Password reset successful</h2>
<p>Your password has been changed. If this wasn't you, contact support immediately.</p>
</div>`
