package services

import (
	"context"
	"errors"
	"mime/multipart"
	"net/mail"
	"regexp"
	"strings"

	"sweetbite/models"
	"sweetbite/uploads"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var nameRe = regexp.MustCompile(`^[A-Za-z ]+$`)

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type ProfileInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

type Accounts struct {
	db      *gorm.DB
	uploads *uploads.Store
}

func NewAccounts(db *gorm.DB, store *uploads.Store) *Accounts {
	return &Accounts{db: db, uploads: store}
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func validateName(name string) error {
	if len(name) < 3 || len(name) > 50 || !nameRe.MatchString(name) {
		return invalid("Name must be 3 to 50 letters and spaces")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) < 5 || len(email) > 50 {
		return invalid("Email must be 5 to 50 characters")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return invalid("Email address is not valid")
	}
	return nil
}

// Register creates a user after validating the signup form
func (a *Accounts) Register(ctx context.Context, in SignupInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)

	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, invalid("Please choose customer, restaurant or delivery")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < 6 || len(in.Password) > 50 {
		return nil, invalid("Password must be 6 to 50 characters")
	}

	db := a.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "role": role}).Info("user registered")
	return &user, nil
}

// Authenticate checks the credentials and returns the user
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (a *Accounts) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := a.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	return &user, err
}

// UpdateProfile saves the editable account fields. A new image replaces the old one
// only after the row is updated.
func (a *Accounts) UpdateProfile(ctx context.Context, userID uint, in ProfileInput, image *multipart.FileHeader) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user, err := a.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	db := a.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.User{}).Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrEmailTaken
	}

	oldImage := user.Image
	newImage := ""
	if image != nil {
		if newImage, err = a.uploads.Save(image, uploads.DirUsers); err != nil {
			return nil, imageError(err)
		}
	}

	updates := map[string]any{
		"name":    name,
		"email":   email,
		"phone":   strings.TrimSpace(in.Phone),
		"address": strings.TrimSpace(in.Address),
	}
	if newImage != "" {
		updates["image"] = newImage
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		_ = a.uploads.Remove(newImage)
		return nil, err
	}
	if newImage != "" {
		removeQuietly(a.uploads, oldImage)
	}
	return a.Get(ctx, userID)
}

// imageError turns an upload rejection into a validation message
func imageError(err error) error {
	switch {
	case errors.Is(err, uploads.ErrUnsupportedType), errors.Is(err, uploads.ErrTooLarge):
		return invalid("%s", capitalize(err.Error()))
	}
	return err
}

func removeQuietly(store *uploads.Store, rel string) {
	if err := store.Remove(rel); err != nil {
		logrus.WithField("path", rel).WithError(err).Warn("could not remove old image")
	}
}
