package services

import (
	"context"
	"crypto/tls"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/regalo/backend/internal/models"
)

type MongoConnectionStore struct {
	client         *mongo.Client
	db             *mongo.Database
	connectionsCol *mongo.Collection
	invitationsCol *mongo.Collection
}

func NewMongoConnectionStore(ctx context.Context, mongoURI, dbName string) (*MongoConnectionStore, error) {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI).SetTLSConfig(tlsCfg))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(dbName)
	conns := db.Collection("connections")
	invs := db.Collection("connection_invitations")

	// Best-effort indexes.
	_, _ = conns.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id_1", Value: 1}}},
		{Keys: bson.D{{Key: "user_id_2", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	_, _ = invs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "from_user_id", Value: 1}},
	})

	log.Printf("MongoDB connected (connections): db=%s", dbName)
	return &MongoConnectionStore{
		client:         client,
		db:             db,
		connectionsCol: conns,
		invitationsCol: invs,
	}, nil
}

func (s *MongoConnectionStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoConnectionStore) CreateInvitation(ctx context.Context, inv *models.ConnectionInvitation) (*models.ConnectionInvitation, error) {
	stored := *inv
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	stored.CreatedAt = time.Now()

	if _, err := s.invitationsCol.InsertOne(ctx, stored); err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *MongoConnectionStore) GetInvitation(ctx context.Context, id string) (*models.ConnectionInvitation, error) {
	var inv models.ConnectionInvitation
	if err := s.invitationsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// ConsumeInvitation flips used atomically with a conditional update so two
// concurrent accepts of the same link cannot both pass.
func (s *MongoConnectionStore) ConsumeInvitation(ctx context.Context, id, usedBy string) (*models.ConnectionInvitation, error) {
	now := time.Now()
	filter := bson.M{
		"_id":        id,
		"used":       false,
		"expires_at": bson.M{"$gt": now},
	}
	update := bson.M{"$set": bson.M{"used": true, "used_by": usedBy}}

	var inv models.ConnectionInvitation
	err := s.invitationsCol.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&inv)
	if err == nil {
		return &inv, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// The conditional write missed; read the document to report why.
	existing, getErr := s.GetInvitation(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing.Used {
		return nil, ErrInvitationUsed
	}
	return nil, ErrInvitationExpired
}

func (s *MongoConnectionStore) CreateConnection(ctx context.Context, userID1, userID2 string) (*models.Connection, error) {
	now := time.Now()
	conn := &models.Connection{
		ID:        uuid.New().String(),
		UserID1:   userID1,
		UserID2:   userID2,
		Status:    models.ConnectionPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.connectionsCol.InsertOne(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *MongoConnectionStore) GetConnection(ctx context.Context, id string) (*models.Connection, error) {
	var conn models.Connection
	if err := s.connectionsCol.FindOne(ctx, bson.M{"_id": id}).Decode(&conn); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}
	return &conn, nil
}

func (s *MongoConnectionStore) GetConnectionsByUser(ctx context.Context, userID string) ([]*models.Connection, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user_id_1": userID},
		bson.M{"user_id_2": userID},
	}}
	return s.findConnections(ctx, filter)
}

func (s *MongoConnectionStore) UpdateConnectionStatus(ctx context.Context, id string, status models.ConnectionStatus) (*models.Connection, error) {
	set := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == models.ConnectionAccepted {
		set["viewed_by_user_1"] = false // sender has not seen the acceptance yet
		set["viewed_by_user_2"] = true  // recipient caused it
	}

	var conn models.Connection
	err := s.connectionsCol.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&conn)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrConnectionNotFound
		}
		return nil, err
	}
	return &conn, nil
}

func (s *MongoConnectionStore) MarkConnectionAsViewed(ctx context.Context, id, userID string) error {
	conn, err := s.GetConnection(ctx, id)
	if err != nil {
		return err
	}

	set := bson.M{}
	switch userID {
	case conn.UserID1:
		set["viewed_by_user_1"] = true
	case conn.UserID2:
		set["viewed_by_user_2"] = true
	default:
		return nil
	}

	_, err = s.connectionsCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (s *MongoConnectionStore) DeleteConnection(ctx context.Context, id string) error {
	res, err := s.connectionsCol.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *MongoConnectionStore) ListAcceptedConnections(ctx context.Context) ([]*models.Connection, error) {
	return s.findConnections(ctx, bson.M{"status": models.ConnectionAccepted})
}

func (s *MongoConnectionStore) findConnections(ctx context.Context, filter bson.M) ([]*models.Connection, error) {
	cur, err := s.connectionsCol.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var conns []*models.Connection
	for cur.Next(ctx) {
		var c models.Connection
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		conns = append(conns, &c)
	}
	return conns, cur.Err()
}
