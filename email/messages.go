package email

import (
	"fmt"
	"net/url"
)

// Message is a rendered email ready for a Sender.
type Message struct {
	Subject string
	Body    string
}

func Confirmation(domain, tokenID string) Message {
	link := fmt.Sprintf("%s/email-confirm?token_id=%s", domain, url.QueryEscape(tokenID))
	return Message{
		Subject: "Please confirm your email",
		Body: fmt.Sprintf(`Hello!

Thanks for signing up to Blog++. Confirm your email address with the link below:

%s

If you did not sign up, ignore this email.
`, link),
	}
}

func EmailChange(domain, tokenID, newEmail string) Message {
	link := fmt.Sprintf("%s/email-change-confirm?token_id=%s&email=%s",
		domain, url.QueryEscape(tokenID), url.QueryEscape(newEmail))
	return Message{
		Subject: "Please confirm your email",
		Body: fmt.Sprintf(`Hello!

Someone asked to change your Blog++ email address to %s.
Confirm the change with the link below:

%s
`, newEmail, link),
	}
}

func Username(username string) Message {
	return Message{
		Subject: "Your Blog++ username",
		Body:    fmt.Sprintf("Your Blog++ username is %s\n", username),
	}
}

func PasswordReset(domain, tokenID string) Message {
	link := fmt.Sprintf("%s/passreset?token_id=%s", domain, url.QueryEscape(tokenID))
	return Message{
		Subject: "Your Blog++ password recovery",
		Body: fmt.Sprintf(`Hello!

Reset your Blog++ password with the link below:

%s

If you did not ask for a new password, ignore this email.
`, link),
	}
}

func NewComment(domain, author, postTitle string, postID uint, commenter, comment string) Message {
	return Message{
		Subject: "Blog++: Comment on post",
		Body: fmt.Sprintf(`%s commented on your post "%s":

%s

%s/%s/post/%d
`, commenter, postTitle, comment, domain, author, postID),
	}
}

// NewSubscriber goes to the blog author.
func NewSubscriber(domain, blog, subscriber string) Message {
	return Message{
		Subject: "Blog++: New Subscription",
		Body: fmt.Sprintf(`%s subscribed to your blog %s.

%s/blog/%s
`, subscriber, blog, domain, url.PathEscape(blog)),
	}
}

// Welcome goes to the new subscriber and carries the blog's welcome text.
func Welcome(domain, blog, author, welcome string) Message {
	return Message{
		Subject: "Blog++: New Subscription",
		Body: fmt.Sprintf(`You are now subscribed to %s by %s.

%s

%s/blog/%s
`, blog, author, welcome, domain, url.PathEscape(blog)),
	}
}

func NewPost(domain, blog, author, postTitle string, postID uint) Message {
	return Message{
		Subject: fmt.Sprintf("Blog++: New Post in %s", blog),
		Body: fmt.Sprintf(`%s published "%s" in %s.

%s/%s/post/%d
`, author, postTitle, blog, domain, author, postID),
	}
}
