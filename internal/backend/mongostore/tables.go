package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/alexanderramin/feedlog/internal/domain"
)

type sessionDoc struct {
	ID           string     `bson:"_id"`
	UserID       string     `bson:"user_id"`
	StartTime    time.Time  `bson:"start_time"`
	EndTime      *time.Time `bson:"end_time,omitempty"`
	Duration     int        `bson:"duration"`
	BreastType   string     `bson:"breast_type"`
	BottleVolume *int       `bson:"bottle_volume,omitempty"`
	Notes        string     `bson:"notes,omitempty"`
	IsActive     bool       `bson:"is_active"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toSessionDoc(ownerID string, s domain.FeedingSession, now time.Time) sessionDoc {
	d := sessionDoc{
		ID:           s.ID,
		UserID:       ownerID,
		StartTime:    s.StartTime.UTC(),
		Duration:     s.Duration,
		BreastType:   string(s.Type),
		BottleVolume: s.BottleVolume,
		Notes:        s.Notes,
		IsActive:     s.Active,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if s.EndTime != nil {
		end := s.EndTime.UTC()
		d.EndTime = &end
	}
	return d
}

func (d sessionDoc) toDomain() domain.FeedingSession {
	return domain.FeedingSession{
		ID:           d.ID,
		StartTime:    d.StartTime,
		EndTime:      d.EndTime,
		Duration:     d.Duration,
		Type:         domain.FeedingType(d.BreastType),
		BottleVolume: d.BottleVolume,
		Notes:        d.Notes,
		Active:       d.IsActive,
	}
}

// SessionTable implements backend.SessionTable on the feeding_sessions collection.
type SessionTable struct {
	s *Store
}

func (t *SessionTable) List(ctx context.Context, ownerID string) ([]domain.FeedingSession, error) {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: -1}})
	cursor, err := t.s.sessions.Find(ctx, bson.M{"user_id": ownerID}, opts)
	if err != nil {
		return nil, classify("listing feeding sessions", err)
	}
	defer cursor.Close(ctx)

	var docs []sessionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, classify("decoding feeding sessions", err)
	}
	sessions := make([]domain.FeedingSession, 0, len(docs))
	for _, d := range docs {
		sessions = append(sessions, d.toDomain())
	}
	return sessions, nil
}

func (t *SessionTable) Insert(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	_, err := t.s.sessions.InsertOne(ctx, toSessionDoc(ownerID, s, time.Now().UTC()))
	return classify("inserting feeding session", err)
}

func (t *SessionTable) Update(ctx context.Context, ownerID string, s domain.FeedingSession) error {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	doc := toSessionDoc(ownerID, s, time.Now().UTC())
	set := bson.M{
		"start_time":    doc.StartTime,
		"end_time":      doc.EndTime,
		"duration":      doc.Duration,
		"breast_type":   doc.BreastType,
		"bottle_volume": doc.BottleVolume,
		"notes":         doc.Notes,
		"is_active":     doc.IsActive,
		"updated_at":    doc.UpdatedAt,
	}
	res, err := t.s.sessions.UpdateOne(ctx, bson.M{"_id": s.ID, "user_id": ownerID}, bson.M{"$set": set})
	if err != nil {
		return classify("updating feeding session", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("feeding session %s: %w", s.ID, domain.ErrNotFound)
	}
	return nil
}

func (t *SessionTable) Delete(ctx context.Context, ownerID, id string) error {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	res, err := t.s.sessions.DeleteOne(ctx, bson.M{"_id": id, "user_id": ownerID})
	if err != nil {
		return classify("deleting feeding session", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("feeding session %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Ping counts at most one of the owner's documents.
func (t *SessionTable) Ping(ctx context.Context, ownerID string) error {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	_, err := t.s.sessions.CountDocuments(ctx, bson.M{"user_id": ownerID}, options.Count().SetLimit(1))
	return classify("probing feeding_sessions", err)
}

type profileDoc struct {
	ID            string     `bson:"_id"`
	Email         string     `bson:"email"`
	FullName      string     `bson:"full_name,omitempty"`
	BabyName      string     `bson:"baby_name,omitempty"`
	BabyBirthDate *time.Time `bson:"baby_birth_date,omitempty"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
}

// ProfileTable implements backend.ProfileTable on the user_profiles collection.
type ProfileTable struct {
	s *Store
}

func (t *ProfileTable) Get(ctx context.Context, ownerID string) (*domain.Profile, error) {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	var d profileDoc
	err := t.s.profiles.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("user profile: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, classify("fetching user profile", err)
	}
	return &domain.Profile{
		OwnerID:        d.ID,
		Email:          d.Email,
		DisplayName:    d.FullName,
		ChildName:      d.BabyName,
		ChildBirthDate: d.BabyBirthDate,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}, nil
}

func (t *ProfileTable) Upsert(ctx context.Context, p *domain.Profile) error {
	ctx, cancel := t.s.withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"email":           p.Email,
			"full_name":       p.DisplayName,
			"baby_name":       p.ChildName,
			"baby_birth_date": p.ChildBirthDate,
			"updated_at":      now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := t.s.profiles.UpdateOne(ctx, bson.M{"_id": p.OwnerID}, update, options.Update().SetUpsert(true))
	return classify("upserting user profile", err)
}
