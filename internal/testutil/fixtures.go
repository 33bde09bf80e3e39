package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"authcore/internal/model"
)

// CreateUser inserts an active user with one linked account and the given roles.
func CreateUser(t *testing.T, gdb *gorm.DB, email string, roles ...string) *model.User {
	t.Helper()

	user := &model.User{Email: email, Name: "Test " + email}
	if err := gdb.Omit("Accounts", "Tokens", "UserRoles").Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	account := &model.Account{
		UserID:            user.ID,
		Provider:          "google",
		ProviderAccountID: uuid.NewString(),
	}
	if err := gdb.Omit("User").Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	for _, role := range roles {
		if err := gdb.Create(&model.UserRole{UserID: user.ID, Role: role}).Error; err != nil {
			t.Fatalf("create role: %v", err)
		}
	}
	user.Roles = roles
	return user
}

// Deactivate flips a user to inactive. Create ignores a false IsActive because of the column default.
func Deactivate(t *testing.T, gdb *gorm.DB, user *model.User) {
	t.Helper()
	if err := gdb.Model(&model.User{}).Where("id = ?", user.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate user: %v", err)
	}
	user.IsActive = false
}
