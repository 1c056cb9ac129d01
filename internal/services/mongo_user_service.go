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
	"golang.org/x/crypto/bcrypt"

	"github.com/regalo/backend/internal/models"
)

type MongoUserService struct {
	client     *mongo.Client
	db         *mongo.Database
	usersCol   *mongo.Collection
	maxChanges int
}

func NewMongoUserService(ctx context.Context, mongoURI, dbName string, maxDailyChanges int) (*MongoUserService, error) {
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
	col := db.Collection("users")

	// Best-effort indexes.
	_, _ = col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "push_token", Value: 1}}},
	})

	log.Printf("MongoDB connected (users): db=%s", dbName)
	return &MongoUserService{
		client:     client,
		db:         db,
		usersCol:   col,
		maxChanges: maxDailyChanges,
	}, nil
}

func (s *MongoUserService) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoUserService) Create(ctx context.Context, id string, req *models.CreateUserRequest) (*models.User, error) {
	if id == "" {
		id = uuid.New().String()
	}

	var passwordHash string
	if req.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		passwordHash = string(hashed)
	}

	now := time.Now()
	user := &models.User{
		ID:           id,
		Email:        normalizeEmail(req.Email),
		PasswordHash: passwordHash,
		Name:         req.Name,
		Birthdate:    req.Birthdate,
		Avatar:       req.Avatar,
		Hobbies:      req.Hobbies,
		HideAge:      req.HideAge,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.usersCol.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return user, nil
}

func (s *MongoUserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

func (s *MongoUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.usersCol.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Update applies a partial profile edit. The change-limit check is
// read-then-write without isolation, same as the rest of the cooperative
// invariants in this store.
func (s *MongoUserService) Update(ctx context.Context, id string, req *models.UpdateUserRequest) (*models.User, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := applyUpdate(*current, req, time.Now(), s.maxChanges)
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"name":                    updated.Name,
		"birthdate":               updated.Birthdate,
		"avatar":                  updated.Avatar,
		"hobbies":                 updated.Hobbies,
		"hide_age":                updated.HideAge,
		"name_changes_count":      updated.NameChangesCount,
		"name_last_change_at":     updated.NameLastChangeAt,
		"hide_age_changes_count":  updated.HideAgeChangesCount,
		"hide_age_last_change_at": updated.HideAgeLastChangeAt,
		"updated_at":              updated.UpdatedAt,
	}
	if _, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set}); err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoUserService) Delete(ctx context.Context, id string) error {
	res, err := s.usersCol.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserService) List(ctx context.Context) ([]*models.User, error) {
	cur, err := s.usersCol.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var users []*models.User
	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, cur.Err()
}

func (s *MongoUserService) SetPushToken(ctx context.Context, id, token string) error {
	res, err := s.usersCol.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"push_token": token, "push_token_updated_at": time.Now()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *MongoUserService) ClearPushToken(ctx context.Context, token string) error {
	_, err := s.usersCol.UpdateMany(ctx, bson.M{"push_token": token}, bson.M{
		"$unset": bson.M{"push_token": "", "push_token_updated_at": ""},
	})
	return err
}
