package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"otoil-backend/models"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping error: %w", err)
	}
	return client, nil
}

// MongoStore keeps service records as documents in one collection.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(collection *mongo.Collection) *MongoStore {
	return &MongoStore{collection: collection}
}

func (s *MongoStore) List(ctx context.Context, query string) ([]models.ServiceRecord, error) {
	if s.collection == nil {
		return nil, errors.New("mongo collection is nil")
	}
	filter := bson.M{}
	if q := strings.TrimSpace(query); q != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(q), "$options": "i"}
		filter = bson.M{"$or": bson.A{
			bson.M{"plaka": pattern},
			bson.M{"musteriAdi": pattern},
		}}
	}

	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.ServiceRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.ServiceRecord, error) {
	if s.collection == nil {
		return nil, errors.New("mongo collection is nil")
	}
	var record models.ServiceRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *MongoStore) Add(ctx context.Context, record *models.ServiceRecord) error {
	if s.collection == nil {
		return errors.New("mongo collection is nil")
	}
	record.ID = uuid.NewString()
	record.CreatedAt = time.Now().UTC()
	_, err := s.collection.InsertOne(ctx, record)
	return err
}

func (s *MongoStore) Update(ctx context.Context, record *models.ServiceRecord) error {
	if s.collection == nil {
		return errors.New("mongo collection is nil")
	}
	set := bson.M{
		"musteriAdi":         record.CustomerName,
		"telefon":            record.Phone,
		"plaka":              record.Plate,
		"aracModeli":         record.VehicleModel,
		"tarih":              record.ServiceDate,
		"yapilanIslemler":    record.WorkPerformed,
		"kontrolNotlari":     record.CheckupNotes,
		"ucret":              record.Fee,
		"personelAdi":        record.StaffName,
		"sonrakiBakimTarihi": record.NextServiceDate,
	}
	result, err := s.collection.UpdateOne(ctx, bson.M{"_id": record.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}

	stored, err := s.Get(ctx, record.ID)
	if err != nil {
		return err
	}
	*record = *stored
	return nil
}

func (s *MongoStore) DeleteAll(ctx context.Context, batchSize int, progress func(deleted int)) (int, error) {
	if s.collection == nil {
		return 0, errors.New("mongo collection is nil")
	}
	if batchSize <= 0 {
		batchSize = DeleteBatchSize
	}
	total := 0
	for {
		opts := options.Find().SetLimit(int64(batchSize)).SetProjection(bson.M{"_id": 1})
		cursor, err := s.collection.Find(ctx, bson.M{}, opts)
		if err != nil {
			return total, err
		}
		var docs []struct {
			ID string `bson:"_id"`
		}
		err = cursor.All(ctx, &docs)
		cursor.Close(ctx)
		if err != nil {
			return total, err
		}
		if len(docs) == 0 {
			return total, nil
		}

		ids := make(bson.A, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		result, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return total, err
		}
		total += int(result.DeletedCount)
		if progress != nil {
			progress(total)
		}
	}
}
