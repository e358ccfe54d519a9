package main

import (
	"context"
	"errors"
	"log"
	"time"

	"bookingdesk/internal/app"
	"bookingdesk/internal/config"
	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/jwt"
	"bookingdesk/internal/pkg/logger"

	"go.uber.org/zap"
)

var businesses = []domain.Business{
	{ID: "biz-hotel", Name: "Harbour View Hotel", Email: "frontdesk@harbourview.test", UPIID: "harbourview@upi", BusinessType: domain.BusinessHotel},
	{ID: "biz-restaurant", Name: "Saffron Table", Email: "hello@saffrontable.test", UPIID: "saffron@upi", BusinessType: domain.BusinessRestaurant},
	{ID: "biz-cafe", Name: "Bean Corner", Email: "team@beancorner.test", BusinessType: domain.BusinessCafe},
	{ID: "biz-cab", Name: "CityRide Cabs", Email: "dispatch@cityride.test", UPIID: "cityride@upi", BusinessType: domain.BusinessCab},
	{ID: "biz-shopping", Name: "Loom & Thread", Email: "store@loomthread.test", BusinessType: domain.BusinessShopping},
}

var customers = []domain.Customer{
	{ID: "cust-asha", Username: "asha", Email: "asha@example.test"},
	{ID: "cust-ravi", Username: "ravi", Email: "ravi@example.test"},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	zlog, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("open store", zap.Error(err))
	}
	defer func() { _ = stores.Close(context.Background()) }()

	jwtSvc := jwt.New(cfg.JWTSecret, cfg.JWTTTL)
	now := time.Now().UTC()

	for _, b := range businesses {
		b.CreatedAt, b.UpdatedAt = now, now
		if err := stores.Businesses.Create(ctx, &b); err != nil && !errors.Is(err, domain.ErrConflict) {
			zlog.Fatal("seed business", zap.String("id", b.ID), zap.Error(err))
		}
		token, _ := jwtSvc.GenerateToken(b.ID, jwt.RoleBusiness)
		zlog.Info("business ready", zap.String("id", b.ID), zap.String("type", string(b.BusinessType)), zap.String("token", token))
	}

	for _, c := range customers {
		c.CreatedAt = now
		if err := stores.Customers.Create(ctx, &c); err != nil && !errors.Is(err, domain.ErrConflict) {
			zlog.Fatal("seed customer", zap.String("id", c.ID), zap.Error(err))
		}
		token, _ := jwtSvc.GenerateToken(c.ID, jwt.RoleCustomer)
		zlog.Info("customer ready", zap.String("id", c.ID), zap.String("token", token))
	}
}
