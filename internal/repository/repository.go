package repository

import (
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Repository aggregate entry point for all repositories
type Repository struct {
	Delivery DeliveryRepository
	Location LocationRepository
}

// NewRepository wires repositories over the injected connections
func NewRepository(db *gorm.DB, deliveries *mongo.Collection) *Repository {
	return &Repository{
		Delivery: NewDeliveryRepo(deliveries),
		Location: NewLocationRepo(db),
	}
}
