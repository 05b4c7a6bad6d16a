package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rshade/ecolife/internal/advisor"
	"github.com/rshade/ecolife/internal/goals"
	"github.com/rshade/ecolife/internal/ledger"
)

// DefaultMongoDatabase is used when no database name is configured.
const DefaultMongoDatabase = "ecolife"

// Collection names.
const (
	collActivities   = "activities"
	collGoals        = "goals"
	collInsights     = "insights"
	collAchievements = "achievements"
)

// Mongo stores each entity in its own collection.
type Mongo struct {
	client       *mongo.Client
	activities   *mongo.Collection
	goals        *mongo.Collection
	insights     *mongo.Collection
	achievements *mongo.Collection
}

// OpenMongo connects to uri and pings the server.
func OpenMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return NewMongo(client.Database(database)), nil
}

// NewMongo wraps an existing database handle.
func NewMongo(db *mongo.Database) *Mongo {
	return &Mongo{
		client:       db.Client(),
		activities:   db.Collection(collActivities),
		goals:        db.Collection(collGoals),
		insights:     db.Collection(collInsights),
		achievements: db.Collection(collAchievements),
	}
}

// EnsureIndexes creates the indexes the queries rely on. Safe to repeat.
func (m *Mongo) EnsureIndexes(ctx context.Context) error {
	if _, err := m.activities.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating activities index: %w", err)
	}
	if _, err := m.insights.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "category", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating insights index: %w", err)
	}
	if _, err := m.achievements.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "achievementId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("creating achievements index: %w", err)
	}
	return nil
}

// InsertActivity stores a.
func (m *Mongo) InsertActivity(ctx context.Context, a ledger.Activity) error {
	if _, err := m.activities.InsertOne(ctx, a); err != nil {
		return fmt.Errorf("failed to insert activity: %w", err)
	}
	return nil
}

// activityFilter translates a ledger filter into a query document.
func activityFilter(f ledger.Filter) bson.M {
	filter := bson.M{}
	if f.ID != "" {
		filter["_id"] = f.ID
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.Range != nil {
		date := bson.M{}
		if !f.Range.From.IsZero() {
			date["$gte"] = f.Range.From
		}
		if !f.Range.To.IsZero() {
			date["$lte"] = f.Range.To
		}
		if len(date) > 0 {
			filter["date"] = date
		}
	}
	return filter
}

// QueryActivities returns matching activities ordered by date, then id.
func (m *Mongo) QueryActivities(ctx context.Context, f ledger.Filter) ([]ledger.Activity, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := m.activities.Find(ctx, activityFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer cursor.Close(ctx)

	activities := []ledger.Activity{}
	if err = cursor.All(ctx, &activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	return activities, nil
}

// DeleteActivity removes an activity, or returns ledger.ErrNotFound.
func (m *Mongo) DeleteActivity(ctx context.Context, id string) error {
	res, err := m.activities.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	if res.DeletedCount == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// UpdateActivity applies patch and returns the updated document.
func (m *Mongo) UpdateActivity(ctx context.Context, id string, patch ledger.ActivityPatch) (ledger.Activity, error) {
	set := bson.M{}
	if patch.Notes != nil {
		set["notes"] = *patch.Notes
	}
	if patch.Verified != nil {
		set["verified"] = *patch.Verified
	}
	if !patch.UpdatedAt.IsZero() {
		set["updatedAt"] = patch.UpdatedAt
	}

	var updated ledger.Activity
	err := m.activities.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ledger.Activity{}, ledger.ErrNotFound
		}
		return ledger.Activity{}, fmt.Errorf("failed to update activity: %w", err)
	}
	return updated, nil
}

// FindGoals returns goals.ErrGoalsMissing when userID has none.
func (m *Mongo) FindGoals(ctx context.Context, userID string) (goals.Goals, error) {
	var g goals.Goals
	if err := m.goals.FindOne(ctx, bson.M{"_id": userID}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return goals.Goals{}, goals.ErrGoalsMissing
		}
		return goals.Goals{}, fmt.Errorf("failed to find goals: %w", err)
	}
	return g, nil
}

// CreateGoalsIfAbsent inserts g; if another writer got there first the
// stored record wins.
func (m *Mongo) CreateGoalsIfAbsent(ctx context.Context, g goals.Goals) (goals.Goals, error) {
	_, err := m.goals.InsertOne(ctx, g)
	if err == nil {
		return g, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return goals.Goals{}, fmt.Errorf("failed to insert goals: %w", err)
	}
	return m.FindGoals(ctx, g.UserID)
}

// SaveGoals upserts g.
func (m *Mongo) SaveGoals(ctx context.Context, g goals.Goals) error {
	_, err := m.goals.ReplaceOne(ctx, bson.M{"_id": g.UserID}, g, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save goals: %w", err)
	}
	return nil
}

// ListInsights returns a user's insights ordered by id.
func (m *Mongo) ListInsights(ctx context.Context, userID string) ([]advisor.Insight, error) {
	cursor, err := m.insights.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch insights: %w", err)
	}
	defer cursor.Close(ctx)

	insights := []advisor.Insight{}
	if err = cursor.All(ctx, &insights); err != nil {
		return nil, fmt.Errorf("failed to decode insights: %w", err)
	}
	return insights, nil
}

// GetInsight returns advisor.ErrInsightNotFound for an unknown id.
func (m *Mongo) GetInsight(ctx context.Context, id string) (advisor.Insight, error) {
	var in advisor.Insight
	if err := m.insights.FindOne(ctx, bson.M{"_id": id}).Decode(&in); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return advisor.Insight{}, advisor.ErrInsightNotFound
		}
		return advisor.Insight{}, fmt.Errorf("failed to find insight: %w", err)
	}
	return in, nil
}

// SaveInsight upserts in by ID.
func (m *Mongo) SaveInsight(ctx context.Context, in advisor.Insight) error {
	_, err := m.insights.ReplaceOne(ctx, bson.M{"_id": in.ID}, in, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

// ListAchievements returns a user's stored achievements.
func (m *Mongo) ListAchievements(ctx context.Context, userID string) ([]advisor.Achievement, error) {
	cursor, err := m.achievements.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "achievementId", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer cursor.Close(ctx)

	achievements := []advisor.Achievement{}
	if err = cursor.All(ctx, &achievements); err != nil {
		return nil, fmt.Errorf("failed to decode achievements: %w", err)
	}
	return achievements, nil
}

// SaveAchievement upserts a by (UserID, AchievementID).
func (m *Mongo) SaveAchievement(ctx context.Context, a advisor.Achievement) error {
	_, err := m.achievements.ReplaceOne(ctx,
		bson.M{"userId": a.UserID, "achievementId": a.AchievementID},
		a,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save achievement: %w", err)
	}
	return nil
}

// UserIDs lists users with activities or goals.
func (m *Mongo) UserIDs(ctx context.Context) ([]string, error) {
	seen := map[string]struct{}{}
	for _, q := range []struct {
		coll  *mongo.Collection
		field string
	}{
		{m.activities, "userId"},
		{m.goals, "_id"},
	} {
		values, err := q.coll.Distinct(ctx, q.field, bson.M{})
		if err != nil {
			return nil, fmt.Errorf("failed to list users: %w", err)
		}
		for _, v := range values {
			if id, ok := v.(string); ok && id != "" {
				seen[id] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close disconnects the client.
func (m *Mongo) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
