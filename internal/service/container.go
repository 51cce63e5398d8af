package service

import (
	"context"

	"paigow-service/internal/service/admin"
	"paigow-service/internal/service/auth"
	"paigow-service/internal/service/room"
	"paigow-service/internal/service/stakes"
	"paigow-service/internal/service/user"
	"paigow-service/internal/service/wallet"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Room   *room.Service
	Stakes *stakes.Service
	Auth   *auth.Service
	User   *user.Service
	Wallet *wallet.Service
	Admin  *admin.Service
}

func NewContainer(db *gorm.DB, rdb *redis.Client) *Container {
	return &Container{
		Admin:  admin.NewService(db),
		Auth:   auth.NewService(db, rdb),
		Room:   room.NewService(db, rdb),
		Stakes: stakes.NewService(db),
		User:   user.NewService(db),
		Wallet: wallet.NewService(db),
	}
}

func (c *Container) Start(ctx context.Context) error {
	return c.Admin.EnsureDefaultAdmin(ctx)
}
