package account

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"blogpp/auth"
	"blogpp/common"
	"blogpp/models"
	"blogpp/store"
)

type ProfileInput struct {
	Username  string `json:"username" form:"username" validate:"omitempty,max=50,excludesall=/?#@"`
	FirstName string `json:"first_name" form:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" form:"last_name" validate:"max=100"`
	Bio       string `json:"bio" form:"bio"`
	Pic       string `json:"pic" form:"pic"`
}

type ChangePasswordInput struct {
	Old     string `json:"old_password" form:"old_password"`
	New     string `json:"password" form:"password"`
	Confirm string `json:"confirm" form:"confirm"`
}

// PreferencesInput leaves a preference unchanged when its field is nil.
type PreferencesInput struct {
	OnComment *bool `json:"on_comment" form:"on_comment"`
	OnSub     *bool `json:"on_sub" form:"on_sub"`
}

func (s *Service) Profile(ctx context.Context, user *auth.Principal) (*models.User, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	var u models.User
	if err := s.db.WithContext(ctx).First(&u, user.UserID).Error; err != nil {
		return nil, common.Lookup(err, "user")
	}
	return &u, nil
}

// UpdateProfile saves the profile fields. An empty username keeps the
// current one; an empty picture keeps the current picture.
func (s *Service) UpdateProfile(ctx context.Context, user *auth.Principal, in ProfileInput) (*models.User, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}
	in.Username = strings.TrimSpace(in.Username)
	if err := common.Validate(in); err != nil {
		return nil, err
	}

	var u models.User
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&u, user.UserID).Error; err != nil {
			return common.Lookup(err, "user")
		}

		if in.Username != "" && in.Username != u.Username {
			taken, err := store.Exists(tx, &models.User{}, "username = ?", in.Username)
			if err != nil {
				return err
			}
			if taken {
				return errUsernameTaken
			}
			u.Username = in.Username
		}
		u.FirstName = in.FirstName
		u.LastName = in.LastName
		u.Bio = in.Bio
		if in.Pic != "" {
			u.Pic = in.Pic
		}

		return tx.Model(&u).
			Select("username", "first_name", "last_name", "bio", "pic").
			Updates(&u).
			Error
	})
	if store.IsDuplicate(err) {
		return nil, errUsernameTaken
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Service) ChangePassword(ctx context.Context, user *auth.Principal, in ChangePasswordInput) error {
	if user == nil {
		return common.ErrUnauthenticated
	}

	switch {
	case in.Old == "":
		return common.Invalid("old_password", "must provide old password to change password")
	case in.New == "":
		return common.Invalid("password", "must provide a new password")
	case in.Confirm == "":
		return common.Invalid("confirm", "must confirm the new password")
	case in.New != in.Confirm:
		return common.Invalid("confirm", "passwords do not match")
	}
	if err := common.Validate(passwordInput{Password: in.New}); err != nil {
		return err
	}

	var u models.User
	if err := s.db.WithContext(ctx).First(&u, user.UserID).Error; err != nil {
		return common.Lookup(err, "user")
	}
	if !auth.CheckPasswordHash(in.Old, u.PasswordHash) {
		return common.Invalid("old_password", "old password is incorrect")
	}
	if in.New == in.Old {
		return common.Invalid("password", "that is the same password")
	}

	hash, err := auth.HashPassword(in.New)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).
		Model(&u).
		UpdateColumn("password_hash", hash).
		Error
}

// Preferences returns the user's notification settings, creating the
// defaults when the row is missing.
func (s *Service) Preferences(ctx context.Context, user *auth.Principal) (*models.NotificationPreference, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	pref := models.NotificationPreference{UserID: user.UserID, OnComment: true, OnSub: true}
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		_, err := store.GetOrCreate(tx, &pref, "user_id = ?", user.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

func (s *Service) UpdatePreferences(ctx context.Context, user *auth.Principal, in PreferencesInput) (*models.NotificationPreference, error) {
	if user == nil {
		return nil, common.ErrUnauthenticated
	}

	pref := models.NotificationPreference{UserID: user.UserID, OnComment: true, OnSub: true}
	err := store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		if _, err := store.GetOrCreate(tx, &pref, "user_id = ?", user.UserID); err != nil {
			return err
		}

		if in.OnComment != nil {
			pref.OnComment = *in.OnComment
		}
		if in.OnSub != nil {
			pref.OnSub = *in.OnSub
		}
		return tx.Model(&pref).
			Select("on_comment", "on_sub").
			Updates(&pref).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &pref, nil
}

// DeleteUser removes the account and everything it owns. Like counters of
// content the user liked are decremented first so they keep matching the
// like rows the cascade removes.
func (s *Service) DeleteUser(ctx context.Context, user *auth.Principal) error {
	if user == nil {
		return common.ErrUnauthenticated
	}

	return store.WithTx(ctx, s.db, func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, user.UserID).Error; err != nil {
			return common.Lookup(err, "user")
		}

		err := tx.Model(&models.Post{}).
			Where("id IN (?)", tx.Model(&models.PostLike{}).Select("post_id").Where("user_id = ?", u.ID)).
			UpdateColumn("likes", gorm.Expr("likes - 1")).
			Error
		if err != nil {
			return err
		}

		err = tx.Model(&models.Comment{}).
			Where("id IN (?)", tx.Model(&models.CommentLike{}).Select("comment_id").Where("user_id = ?", u.ID)).
			UpdateColumn("likes", gorm.Expr("likes - 1")).
			Error
		if err != nil {
			return err
		}

		if err := tx.Delete(&u).Error; err != nil {
			return err
		}

		s.log.Info("User deleted", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
		return nil
	})
}
