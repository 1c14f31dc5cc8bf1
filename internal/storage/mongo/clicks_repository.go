package mongo

import (
	"context"
	"time"

	"github.com/geolink/edge/internal/events"
	"github.com/geolink/edge/internal/infrastructure/db"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClicksRepository appends click rows to the analytics collection. Used
// by the consumer, never by the redirect path.
type ClicksRepository struct {
	coll *mongo.Collection
}

type clickDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	LinkID      string             `bson:"linkId"`
	AccountID   string             `bson:"accountId"`
	Destination string             `bson:"destination"`
	Country     *string            `bson:"country"`
	Latitude    *float64           `bson:"latitude"`
	Longitude   *float64           `bson:"longitude"`
	ClickedTime time.Time          `bson:"clickedTime"`
}

func NewClicksRepository(m *db.Mongo) (*ClicksRepository, error) {
	repo := &ClicksRepository{coll: m.Collection("link_clicks")}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "accountId", Value: 1},
				{Key: "clickedTime", Value: -1},
			},
			Options: options.Index().SetName("accountId_clickedTime"),
		},
		{
			Keys:    bson.D{{Key: "linkId", Value: 1}},
			Options: options.Index().SetName("linkId"),
		},
	})
	if err != nil {
		return nil, err
	}

	return repo, nil
}

func (r *ClicksRepository) Insert(ctx context.Context, data events.LinkClickData, clickedAt time.Time) error {
	doc := clickDoc{
		LinkID:      data.ID,
		AccountID:   data.AccountID,
		Destination: data.Destination,
		Country:     data.Country,
		Latitude:    data.Latitude,
		Longitude:   data.Longitude,
		ClickedTime: clickedAt.UTC(),
	}

	_, err := r.coll.InsertOne(ctx, doc)
	return err
}
