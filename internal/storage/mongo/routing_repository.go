package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/geolink/edge/internal/infrastructure/db"
	"github.com/geolink/edge/internal/processing/routing"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoutingRepository reads routing rules from the links collection the
// CRUD side maintains. This path is read-only.
type RoutingRepository struct {
	coll *mongo.Collection
}

type routingDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	LinkID       string             `bson:"linkId"`
	AccountID    string             `bson:"accountId"`
	Name         string             `bson:"name,omitempty"`
	Destinations map[string]string  `bson:"destinations"`
	Created      time.Time          `bson:"created,omitempty"`
	Updated      *time.Time         `bson:"updated,omitempty"`
}

func NewRoutingRepository(m *db.Mongo) (*RoutingRepository, error) {
	repo := &RoutingRepository{coll: m.Collection("links")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_linkId"),
		},
		{
			Keys:    bson.D{{Key: "accountId", Value: 1}},
			Options: options.Index().SetName("accountId"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *RoutingRepository) FindByLinkID(ctx context.Context, linkID string) (*routing.RoutingRule, error) {
	var doc routingDoc
	err := r.coll.FindOne(ctx, bson.M{"linkId": linkID}).Decode(&doc)
	if err == nil {
		return &routing.RoutingRule{
			LinkID:       doc.LinkID,
			AccountID:    doc.AccountID,
			Destinations: doc.Destinations,
		}, nil
	}

	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, routing.ErrNotFound
	}

	return nil, err
}
