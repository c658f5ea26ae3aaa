package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Nakkasenp65/register-item-delivery/internal/model"
)

// ErrInvalidID the record ID is not a valid ObjectID
var ErrInvalidID = errors.New("invalid object id")

// DeliveryRepository delivery record store
type DeliveryRepository interface {
	Create(ctx context.Context, d *model.Delivery) error
	GetByID(ctx context.Context, id string) (*model.Delivery, error)
	FindByIdentifierOrPhone(ctx context.Context, lineUserID, phone string) ([]model.Delivery, error)
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Delivery, error)
	List(ctx context.Context, f model.DeliveryFilter) ([]model.Delivery, error)
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

type deliveryRepo struct {
	coll *mongo.Collection
}

// NewDeliveryRepo creates a DeliveryRepository over the given collection
func NewDeliveryRepo(coll *mongo.Collection) DeliveryRepository {
	return &deliveryRepo{coll: coll}
}

// ────── Create ──────

func (r *deliveryRepo) Create(ctx context.Context, d *model.Delivery) error {
	res, err := r.coll.InsertOne(ctx, d)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		d.ID = oid
	}
	return nil
}

// ────── Read ──────

func (r *deliveryRepo) GetByID(ctx context.Context, id string) (*model.Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var d model.Delivery
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *deliveryRepo) FindByIdentifierOrPhone(ctx context.Context, lineUserID, phone string) ([]model.Delivery, error) {
	var or bson.A
	if lineUserID != "" {
		or = append(or, bson.M{"line_user_id": lineUserID})
	}
	if phone != "" {
		or = append(or, bson.M{"phone": phone})
	}
	if len(or) == 0 {
		return []model.Delivery{}, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"$or": or}, opts)
	if err != nil {
		return nil, err
	}

	deliveries := []model.Delivery{}
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (r *deliveryRepo) List(ctx context.Context, f model.DeliveryFilter) ([]model.Delivery, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	created := bson.M{}
	if !f.From.IsZero() {
		created["$gte"] = f.From
	}
	if !f.To.IsZero() {
		created["$lt"] = f.To
	}
	if len(created) > 0 {
		filter["createdAt"] = created
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	deliveries := []model.Delivery{}
	if err := cursor.All(ctx, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

// ────── Update ──────

// UpdateFields $sets the given fields plus updatedAt and returns the new document
func (r *deliveryRepo) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) (*model.Delivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	for k, v := range fields {
		set[k] = v
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var d model.Delivery
	err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&d)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ────── Maintenance ──────

func (r *deliveryRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "trackingId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_tracking_id"),
		},
		{
			Keys:    bson.D{{Key: "line_user_id", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("line_user_created"),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("phone_created"),
		},
	})
	return err
}

func (r *deliveryRepo) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}
