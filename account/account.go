// Package account handles registration, email confirmation, password
// recovery, profile settings and account deletion.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

var (
	ErrInvalidCredentials = fmt.Errorf("username or password is incorrect: %w", common.ErrUnauthenticated)
	ErrEmailNotConfirmed  = fmt.Errorf("email address is not confirmed: %w", common.ErrPermissionDenied)
)

// Mailer queues the account mails. Delivery is best effort.
type Mailer interface {
	SendEmailConfirmation(user *models.User, tokenID string)
	SendEmailChange(newEmail, tokenID string)
	SendUsernameReminder(user *models.User)
	SendPasswordReset(user *models.User, tokenID string)
}

type Service struct {
	db     *gorm.DB
	mailer Mailer
	log    *zap.Logger
}

func NewService(db *gorm.DB, mailer Mailer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, mailer: mailer, log: log}
}

type RegisterInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Username string `json:"username" form:"username" validate:"required,max=50,excludesall=/?#@"`
	Password string `json:"password" form:"password" validate:"required,min=8,max=72"`
}

var (
	errEmailTaken    = common.Invalid("email", "a user with this email already exists")
	errUsernameTaken = common.Invalid("username", "a user with this username already exists")
)

// issueToken returns the user's live token, creating one when there is none.
func issueToken(tx *gorm.DB, userID uint) (*models.EmailConfirmationToken, error) {
	token := models.EmailConfirmationToken{ID: uuid.NewString(), UserID: userID}
	if _, err := store.GetOrCreate(tx, &token, "user_id = ?", userID); err != nil {
		return nil, err
	}
	return &token, nil
}

// Register creates an unconfirmed user with default notification settings
// and mails the confirmation link.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var (
		user  models.User
		token *models.EmailConfirmationToken
	)
	err = store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if taken, err := store.Exists(tx, &models.User{}, "email = ?", in.Email); err != nil {
			return err
		} else if taken {
			return errEmailTaken
		}
		if taken, err := store.Exists(tx, &models.User{}, "username = ?", in.Username); err != nil {
			return err
		} else if taken {
			return errUsernameTaken
		}

		user = models.User{
			Username:          in.Username,
			Email:             in.Email,
			PasswordHash:      hash,
			EmailConfirmed:    false,
			PasswordConfirmed: false,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		pref := models.NotificationPreference{UserID: user.ID, OnComment: true, OnSub: true}
		if err := tx.Create(&pref).Error; err != nil {
			return err
		}

		var err error
		token, err = issueToken(tx, user.ID)
		return err
	})
	if store.IsDuplicate(err) {
		return nil, common.Invalid("username", "a user with this username or email already exists")
	}
	if err != nil {
		return nil, err
	}

	s.log.Info("User registered", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	s.mailer.SendEmailConfirmation(&user, token.ID)
	return &user, nil
}

// Authenticate checks the credentials of a confirmed user.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	if !user.EmailConfirmed {
		return nil, ErrEmailNotConfirmed
	}
	return &user, nil
}

// ResendConfirmation mails the user's live token again.
func (s *Service) ResendConfirmation(ctx context.Context, username string) error {
	var (
		user  models.User
		token *models.EmailConfirmationToken
	)
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			return common.Lookup(err, "user")
		}
		var err error
		token, err = issueToken(tx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.mailer.SendEmailConfirmation(&user, token.ID)
	return nil
}

// consumeToken loads the token's user and deletes the token. A token works
// once.
func consumeToken(tx *gorm.DB, tokenID string) (*models.User, error) {
	var token models.EmailConfirmationToken
	if err := tx.Preload("User").Where("id = ?", tokenID).First(&token).Error; err != nil {
		return nil, common.Lookup(err, "token")
	}

	res := tx.Delete(&token)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, common.NotFound("token")
	}
	return token.User, nil
}

func (s *Service) ConfirmEmail(ctx context.Context, tokenID string) (*models.User, error) {
	var user *models.User
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if user, err = consumeToken(tx, tokenID); err != nil {
			return err
		}
		user.EmailConfirmed = true
		return tx.Model(user).UpdateColumn("email_confirmed", true).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Email confirmed", zap.Uint("user_id", user.ID))
	return user, nil
}

type emailInput struct {
	Email string `validate:"required,email"`
}

// RequestEmailChange mails a confirmation link to the new address. The
// stored address changes only once the link is followed.
func (s *Service) RequestEmailChange(ctx context.Context, user *auth.Principal, newEmail string) error {
	if user == nil {
		return common.ErrUnauthenticated
	}
	newEmail = strings.TrimSpace(newEmail)
	if err := common.Validate(emailInput{Email: newEmail}); err != nil {
		return err
	}

	var token *models.EmailConfirmationToken
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if taken, err := store.Exists(tx, &models.User{}, "email = ?", newEmail); err != nil {
			return err
		} else if taken {
			return errEmailTaken
		}
		var err error
		token, err = issueToken(tx, user.UserID)
		return err
	})
	if err != nil {
		return err
	}

	s.mailer.SendEmailChange(newEmail, token.ID)
	return nil
}

func (s *Service) ConfirmEmailChange(ctx context.Context, tokenID, newEmail string) (*models.User, error) {
	newEmail = strings.TrimSpace(newEmail)
	if err := common.Validate(emailInput{Email: newEmail}); err != nil {
		return nil, err
	}

	var user *models.User
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if user, err = consumeToken(tx, tokenID); err != nil {
			return err
		}

		taken, err := store.Exists(tx, &models.User{}, "email = ? AND id <> ?", newEmail, user.ID)
		if err != nil {
			return err
		}
		if taken {
			return errEmailTaken
		}

		user.Email = newEmail
		user.EmailConfirmed = true
		return tx.Model(user).
			Select("email", "email_confirmed").
			Updates(user).
			Error
	})
	if store.IsDuplicate(err) {
		return nil, errEmailTaken
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) userByEmail(ctx context.Context, addr string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", strings.TrimSpace(addr)).First(&user).Error
	if err != nil {
		return nil, common.Lookup(err, "user")
	}
	return &user, nil
}

// RemindUsername mails the username registered for the address.
func (s *Service) RemindUsername(ctx context.Context, addr string) error {
	user, err := s.userByEmail(ctx, addr)
	if err != nil {
		return err
	}
	s.mailer.SendUsernameReminder(user)
	return nil
}

// RequestPasswordReset mails a reset link to the address's user.
func (s *Service) RequestPasswordReset(ctx context.Context, addr string) error {
	user, err := s.userByEmail(ctx, addr)
	if err != nil {
		return err
	}

	var token *models.EmailConfirmationToken
	err = store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		token, err = issueToken(tx, user.ID)
		return err
	})
	if err != nil {
		return err
	}

	s.mailer.SendPasswordReset(user, token.ID)
	return nil
}

type passwordInput struct {
	Password string `validate:"required,min=8,max=72"`
}

// ResetPassword sets a new password using a mailed token.
func (s *Service) ResetPassword(ctx context.Context, tokenID, password string) error {
	if err := common.Validate(passwordInput{Password: password}); err != nil {
		return err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	return store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		user, err := consumeToken(tx, tokenID)
		if err != nil {
			return err
		}
		return tx.Model(user).
			Updates(map[string]any{"password_hash": hash, "password_confirmed": true}).
			Error
	})
}

// ValidateUser confirms a user's email on behalf of staff. Any live token is
// left alone and still works.
func (s *Service) ValidateUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return common.Lookup(err, "user")
		}
		user.EmailConfirmed = true
		return tx.Model(&user).UpdateColumn("email_confirmed", true).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("User validated by staff", zap.Uint("user_id", user.ID))
	return &user, nil
}
