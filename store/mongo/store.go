// Package mongo implements store.Store on MongoDB. Commit runs inside a
// multi-document transaction, so the server must be a replica set or a
// sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grain"
	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	grainstore "github.com/xraph/grain/store"
	"github.com/xraph/grain/ticket"
)

// Collection name constants.
const (
	colProfiles    = "grain_profiles"
	colIngredients = "grain_ingredients"
	colTickets     = "grain_tickets"
	colDishes      = "grain_dishes"
	colMeals       = "grain_meals"
	colEvents      = "grain_events"
)

// DefaultDatabase is used when Open is given an empty database name.
const DefaultDatabase = "grain"

// compile-time interface check
var _ grainstore.Store = (*Store)(nil)

// Store implements store.Store using the MongoDB driver.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New creates a store over an connected client.
func New(client *mongo.Client, dbName string) *Store {
	if dbName == "" {
		dbName = DefaultDatabase
	}
	return &Store{
		client: client,
		db:     client.Database(dbName),
	}
}

// Open connects to uri and returns a store on dbName.
func Open(uri, dbName string) (*Store, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, errors.New("grain/mongo: connection uri is required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("grain/mongo: connect: %w", err)
	}
	return New(client, dbName), nil
}

// Database returns the underlying database for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// Migrate creates indexes for all grain collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.col(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("grain/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ==================== Profile Store ====================

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	if _, err := s.col(colProfiles).InsertOne(ctx, toProfileModel(p)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return grain.ErrAlreadyExists
		}
		return fmt.Errorf("grain/mongo: create profile: %w", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, profileID id.ProfileID) (*profile.Profile, error) {
	var m profileModel
	err := s.col(colProfiles).FindOne(ctx, bson.M{"_id": profileID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("grain/mongo: get profile: %w", err)
	}
	return fromProfileModel(&m)
}

func (s *Store) ListProfiles(ctx context.Context, userRef string) ([]*profile.Profile, error) {
	filter := bson.M{}
	if userRef != "" {
		filter["user_ref"] = userRef
	}
	var models []profileModel
	if err := s.findAll(ctx, colProfiles, filter, options.Find().SetSort(byCreation), &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list profiles: %w", err)
	}

	result := make([]*profile.Profile, 0, len(models))
	for i := range models {
		p, err := fromProfileModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// ==================== Ingredient Store ====================

func (s *Store) GetIngredient(ctx context.Context, ingredientID id.IngredientID) (*ingredient.Ingredient, error) {
	var m ingredientModel
	err := s.col(colIngredients).FindOne(ctx, bson.M{"_id": ingredientID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grain.ErrIngredientNotFound
		}
		return nil, fmt.Errorf("grain/mongo: get ingredient: %w", err)
	}
	return fromIngredientModel(&m)
}

func (s *Store) ListIngredients(ctx context.Context, ownerID id.ProfileID, opts ingredient.ListOpts) ([]*ingredient.Ingredient, error) {
	filter := bson.M{"owner_id": ownerID.String()}
	sort := byCreation
	if opts.OnlyAvailable {
		filter["exhausted"] = false
		sort = bson.D{{Key: "used_amount", Value: -1}, {Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	}
	findOpts := options.Find().SetSort(sort)
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	var models []ingredientModel
	if err := s.findAll(ctx, colIngredients, filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list ingredients: %w", err)
	}

	result := make([]*ingredient.Ingredient, 0, len(models))
	for i := range models {
		ing, err := fromIngredientModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, ing)
	}
	return result, nil
}

// ==================== Ticket Store ====================

func (s *Store) GetTicket(ctx context.Context, ticketID id.TicketID) (*ticket.Ticket, error) {
	var m ticketModel
	err := s.col(colTickets).FindOne(ctx, bson.M{"_id": ticketID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("grain/mongo: get ticket: %w", err)
	}
	return fromTicketModel(&m)
}

func (s *Store) ListTicketsByIngredient(ctx context.Context, ingredientID id.IngredientID) ([]*ticket.Ticket, error) {
	return s.listTickets(ctx, bson.M{"ingredient_id": ingredientID.String()})
}

func (s *Store) ListTicketsByDish(ctx context.Context, dishID id.DishID) ([]*ticket.Ticket, error) {
	return s.listTickets(ctx, bson.M{"dish_id": dishID.String()})
}

func (s *Store) listTickets(ctx context.Context, filter bson.M) ([]*ticket.Ticket, error) {
	var models []ticketModel
	if err := s.findAll(ctx, colTickets, filter, options.Find().SetSort(byCreation), &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list tickets: %w", err)
	}

	result := make([]*ticket.Ticket, 0, len(models))
	for i := range models {
		t, err := fromTicketModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, nil
}

// ==================== Dish Store ====================

func (s *Store) CreateDish(ctx context.Context, d *dish.Dish) error {
	m, err := toDishModel(d)
	if err != nil {
		return fmt.Errorf("grain/mongo: create dish: %w", err)
	}
	if _, err := s.col(colDishes).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return grain.ErrAlreadyExists
		}
		return fmt.Errorf("grain/mongo: create dish: %w", err)
	}
	return nil
}

func (s *Store) GetDish(ctx context.Context, dishID id.DishID) (*dish.Dish, error) {
	var m dishModel
	err := s.col(colDishes).FindOne(ctx, bson.M{"_id": dishID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grain.ErrDishNotFound
		}
		return nil, fmt.Errorf("grain/mongo: get dish: %w", err)
	}
	return fromDishModel(&m)
}

// ListDishes orders by closed cost then open cost, both descending.
func (s *Store) ListDishes(ctx context.Context, mealID id.MealID) ([]*dish.Dish, error) {
	sort := bson.D{
		{Key: "cost_closed", Value: -1},
		{Key: "cost_open", Value: -1},
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	}
	var models []dishModel
	if err := s.findAll(ctx, colDishes, bson.M{"meal_id": mealID.String()}, options.Find().SetSort(sort), &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list dishes: %w", err)
	}

	result := make([]*dish.Dish, 0, len(models))
	for i := range models {
		d, err := fromDishModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// ==================== Meal Store ====================

func (s *Store) CreateMeal(ctx context.Context, m *meal.Meal) error {
	model, err := toMealModel(m)
	if err != nil {
		return fmt.Errorf("grain/mongo: create meal: %w", err)
	}
	if _, err := s.col(colMeals).InsertOne(ctx, model); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return grain.ErrAlreadyExists
		}
		return fmt.Errorf("grain/mongo: create meal: %w", err)
	}
	return nil
}

func (s *Store) GetMeal(ctx context.Context, mealID id.MealID) (*meal.Meal, error) {
	var m mealModel
	err := s.col(colMeals).FindOne(ctx, bson.M{"_id": mealID.String()}).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, grain.ErrMealNotFound
		}
		return nil, fmt.Errorf("grain/mongo: get meal: %w", err)
	}
	return fromMealModel(&m)
}

func (s *Store) ListMeals(ctx context.Context, ownerID id.ProfileID, opts meal.ListOpts) ([]*meal.Meal, error) {
	filter := bson.M{"owner_id": ownerID.String()}
	if window := timeRange(opts.From, opts.To); window != nil {
		filter["time"] = window
	}
	findOpts := options.Find().SetSort(bson.D{
		{Key: "time", Value: 1},
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}

	var models []mealModel
	if err := s.findAll(ctx, colMeals, filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list meals: %w", err)
	}

	result := make([]*meal.Meal, 0, len(models))
	for i := range models {
		m, err := fromMealModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, nil
}

// ==================== Event Store ====================

func (s *Store) ListEvents(ctx context.Context, ownerID id.ProfileID, opts event.QueryOpts) ([]*event.Event, error) {
	filter := bson.M{"owner_id": ownerID.String()}
	if opts.Action != "" {
		filter["action"] = string(opts.Action)
	}
	if window := timeRange(opts.Start, opts.End); window != nil {
		filter["timestamp"] = window
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts.SetSkip(int64(opts.Offset))
	}

	var models []eventModel
	if err := s.findAll(ctx, colEvents, filter, findOpts, &models); err != nil {
		return nil, fmt.Errorf("grain/mongo: list events: %w", err)
	}

	result := make([]*event.Event, 0, len(models))
	for i := range models {
		e, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (s *Store) PurgeEvents(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.col(colEvents).DeleteMany(ctx, bson.M{"timestamp": bson.M{"$lt": before}})
	if err != nil {
		return 0, fmt.Errorf("grain/mongo: purge events: %w", err)
	}
	return res.DeletedCount, nil
}

// ==================== Commit ====================

// Commit writes cs inside one multi-document transaction. A replace or
// delete that matches no document aborts the transaction.
func (s *Store) Commit(ctx context.Context, cs *grainstore.ChangeSet) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("grain/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, s.apply(ctx, cs)
	})
	if err != nil {
		return fmt.Errorf("grain/mongo: commit: %w", err)
	}
	return nil
}

func (s *Store) apply(ctx context.Context, cs *grainstore.ChangeSet) error {
	for _, ing := range cs.CreatedIngredients {
		m, err := toIngredientModel(ing)
		if err != nil {
			return err
		}
		if _, err := s.col(colIngredients).InsertOne(ctx, m); err != nil {
			return fmt.Errorf("create ingredient %s: %w", ing.ID, err)
		}
	}
	for _, ing := range cs.Ingredients {
		m, err := toIngredientModel(ing)
		if err != nil {
			return err
		}
		if err := s.replace(ctx, colIngredients, m.ID, m.Version, m, grain.ErrIngredientNotFound); err != nil {
			return fmt.Errorf("update ingredient %s: %w", ing.ID, err)
		}
	}
	for _, t := range cs.CreatedTickets {
		m, err := toTicketModel(t)
		if err != nil {
			return err
		}
		if _, err := s.col(colTickets).InsertOne(ctx, m); err != nil {
			return fmt.Errorf("create ticket %s: %w", t.ID, err)
		}
	}
	for _, t := range cs.Tickets {
		m, err := toTicketModel(t)
		if err != nil {
			return err
		}
		if err := s.replace(ctx, colTickets, m.ID, m.Version, m, grain.ErrTicketNotFound); err != nil {
			return fmt.Errorf("update ticket %s: %w", t.ID, err)
		}
	}
	for _, ticketID := range cs.DeletedTickets {
		res, err := s.col(colTickets).DeleteOne(ctx, bson.M{"_id": ticketID.String()})
		if err != nil {
			return fmt.Errorf("delete ticket %s: %w", ticketID, err)
		}
		if res.DeletedCount == 0 {
			return fmt.Errorf("delete ticket %s: %w", ticketID, grain.ErrTicketNotFound)
		}
	}
	for _, d := range cs.Dishes {
		m, err := toDishModel(d)
		if err != nil {
			return err
		}
		if err := s.replace(ctx, colDishes, m.ID, m.Version, m, grain.ErrDishNotFound); err != nil {
			return fmt.Errorf("update dish %s: %w", d.ID, err)
		}
	}
	for _, ml := range cs.Meals {
		m, err := toMealModel(ml)
		if err != nil {
			return err
		}
		if err := s.replace(ctx, colMeals, m.ID, m.Version, m, grain.ErrMealNotFound); err != nil {
			return fmt.Errorf("update meal %s: %w", ml.ID, err)
		}
	}
	if len(cs.Events) > 0 {
		docs := make([]any, 0, len(cs.Events))
		for _, e := range cs.Events {
			m, err := toEventModel(e)
			if err != nil {
				return err
			}
			docs = append(docs, m)
		}
		if _, err := s.col(colEvents).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("append events: %w", err)
		}
	}
	return nil
}

// replace swaps the whole document with the given _id for doc.
// replace swaps in doc only while the stored document is at version-1.
func (s *Store) replace(ctx context.Context, col, docID string, version int64, doc any, missing error) error {
	res, err := s.col(col).ReplaceOne(ctx, bson.M{"_id": docID, "version": version - 1}, doc)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := s.col(col).CountDocuments(ctx, bson.M{"_id": docID})
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return fmt.Errorf("version %d is stale: %w", version-1, grain.ErrConcurrentUpdate)
}

// ==================== Helpers ====================

// byCreation is the stable default ordering.
var byCreation = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (s *Store) findAll(ctx context.Context, col string, filter bson.M, opts *options.FindOptionsBuilder, out any) error {
	cursor, err := s.col(col).Find(ctx, filter, opts)
	if err != nil {
		return err
	}
	return cursor.All(ctx, out)
}

// timeRange builds a half-open [from, to) filter; zero bounds are open.
func timeRange(from, to time.Time) bson.M {
	if from.IsZero() && to.IsZero() {
		return nil
	}
	window := bson.M{}
	if !from.IsZero() {
		window["$gte"] = from
	}
	if !to.IsZero() {
		window["$lt"] = to
	}
	return window
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all grain collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProfiles: {
			{Keys: bson.D{{Key: "user_ref", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colIngredients: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "exhausted", Value: 1}, {Key: "used_amount", Value: -1}}},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colTickets: {
			{Keys: bson.D{{Key: "ingredient_id", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "dish_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colDishes: {
			{Keys: bson.D{{Key: "meal_id", Value: 1}, {Key: "cost_closed", Value: -1}, {Key: "cost_open", Value: -1}}},
		},
		colMeals: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "time", Value: 1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "action", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
	}
}
