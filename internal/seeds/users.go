package seeds

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/ravimech476/BE/internal/models"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "Intranet@123"

type demoUser struct {
	Username  string
	EmailID   string
	FirstName string
	LastName  string
	Role      models.Role
}

var demoUsers = []demoUser{
	{"admin", "admin@intranet.local", "System", "Admin", models.RoleAdmin},
	{"priya", "priya@intranet.local", "Priya", "Sharma", models.RoleEmployee},
	{"arjun", "arjun@intranet.local", "Arjun", "Mehta", models.RoleEmployee},
	{"kavya", "kavya@intranet.local", "Kavya", "Iyer", models.RoleEmployee},
}

// SeedUsers creates the demo accounts that do not exist yet and returns all
// of them, existing ones included.
func SeedUsers(ctx context.Context, db *gorm.DB, log zerolog.Logger) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(demoUsers))
	for _, d := range demoUsers {
		var user models.User
		err := db.WithContext(ctx).Where("username = ?", d.Username).First(&user).Error
		if err == nil {
			log.Info().Str("username", user.Username).Msg("User exists, skipping")
			users = append(users, user)
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		user = models.User{
			Username:  d.Username,
			EmailID:   d.EmailID,
			FirstName: d.FirstName,
			LastName:  d.LastName,
			Role:      d.Role,
			Status:    models.StatusActive,
			Password:  string(hash),
		}
		if err := db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}

		log.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("User created")
		users = append(users, user)
	}
	return users, nil
}
