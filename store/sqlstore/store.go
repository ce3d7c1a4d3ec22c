// Package sqlstore implements store.Store on gorm. The postgres and sqlite
// packages open it against their dialects.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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

// compile-time interface check
var _ grainstore.Store = (*Store)(nil)

// PoolConfig tunes the connection pool. Zero values keep driver defaults.
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Store implements store.Store using gorm.
type Store struct {
	db     *gorm.DB
	driver string
}

// New wraps an open gorm handle. driver names the dialect in wrapped
// errors, e.g. "postgres".
func New(db *gorm.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Open connects through dialector with the gorm settings every grain SQL
// store uses and applies pool limits.
func Open(dialector gorm.Dialector, driver string, pool PoolConfig) (*Store, error) {
	gormCfg := &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("grain/%s: open database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("grain/%s: get sql db: %w", driver, err)
	}
	if pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	return New(db, driver), nil
}

// DB returns the underlying gorm handle for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) wrap(op string, err error) error {
	return fmt.Errorf("grain/%s: %s: %w", s.driver, op, err)
}

// notFound maps gorm's missing-row error onto the grain sentinel.
func (s *Store) notFound(op string, err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return s.wrap(op, err)
}

// Migrate creates or updates the grain tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&profileModel{},
		&ingredientModel{},
		&ticketModel{},
		&dishModel{},
		&mealModel{},
		&eventModel{},
	)
	if err != nil {
		return s.wrap("migrate", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.wrap("ping", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return s.wrap("close", err)
	}
	return sqlDB.Close()
}

// ==================== Profile Store ====================

func (s *Store) CreateProfile(ctx context.Context, p *profile.Profile) error {
	if err := s.db.WithContext(ctx).Create(toProfileModel(p)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return grain.ErrAlreadyExists
		}
		return s.wrap("create profile", err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, profileID id.ProfileID) (*profile.Profile, error) {
	var m profileModel
	if err := s.db.WithContext(ctx).Where("id = ?", profileID.String()).First(&m).Error; err != nil {
		return nil, s.notFound("get profile", err, grain.ErrProfileNotFound)
	}
	return fromProfileModel(&m)
}

func (s *Store) ListProfiles(ctx context.Context, userRef string) ([]*profile.Profile, error) {
	var models []profileModel
	q := s.db.WithContext(ctx).Order("created_at, id")
	if userRef != "" {
		q = q.Where("user_ref = ?", userRef)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, s.wrap("list profiles", err)
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
	if err := s.db.WithContext(ctx).Where("id = ?", ingredientID.String()).First(&m).Error; err != nil {
		return nil, s.notFound("get ingredient", err, grain.ErrIngredientNotFound)
	}
	return fromIngredientModel(&m)
}

func (s *Store) ListIngredients(ctx context.Context, ownerID id.ProfileID, opts ingredient.ListOpts) ([]*ingredient.Ingredient, error) {
	var models []ingredientModel
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID.String())
	if opts.OnlyAvailable {
		q = q.Where("exhausted = ?", false).Order("used_amount DESC")
	}
	q = q.Order("created_at, id")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, s.wrap("list ingredients", err)
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
	if err := s.db.WithContext(ctx).Where("id = ?", ticketID.String()).First(&m).Error; err != nil {
		return nil, s.notFound("get ticket", err, grain.ErrTicketNotFound)
	}
	return fromTicketModel(&m)
}

func (s *Store) ListTicketsByIngredient(ctx context.Context, ingredientID id.IngredientID) ([]*ticket.Ticket, error) {
	return s.listTickets(ctx, "ingredient_id = ?", ingredientID.String())
}

func (s *Store) ListTicketsByDish(ctx context.Context, dishID id.DishID) ([]*ticket.Ticket, error) {
	return s.listTickets(ctx, "dish_id = ?", dishID.String())
}

func (s *Store) listTickets(ctx context.Context, where string, arg string) ([]*ticket.Ticket, error) {
	var models []ticketModel
	if err := s.db.WithContext(ctx).Where(where, arg).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, s.wrap("list tickets", err)
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
	if err := s.db.WithContext(ctx).Create(toDishModel(d)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return grain.ErrAlreadyExists
		}
		return s.wrap("create dish", err)
	}
	return nil
}

func (s *Store) GetDish(ctx context.Context, dishID id.DishID) (*dish.Dish, error) {
	var m dishModel
	if err := s.db.WithContext(ctx).Where("id = ?", dishID.String()).First(&m).Error; err != nil {
		return nil, s.notFound("get dish", err, grain.ErrDishNotFound)
	}
	return fromDishModel(&m)
}

// ListDishes orders by closed cost then open cost, both descending. The
// amounts are text columns, so the cost ordering is applied after the
// query.
func (s *Store) ListDishes(ctx context.Context, mealID id.MealID) ([]*dish.Dish, error) {
	var models []dishModel
	if err := s.db.WithContext(ctx).Where("meal_id = ?", mealID.String()).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, s.wrap("list dishes", err)
	}

	result := make([]*dish.Dish, 0, len(models))
	for i := range models {
		d, err := fromDishModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	slices.SortStableFunc(result, func(a, b *dish.Dish) int {
		if c := b.CostClosed.Amount.Cmp(a.CostClosed.Amount); c != 0 {
			return c
		}
		return b.CostOpen.Amount.Cmp(a.CostOpen.Amount)
	})
	return result, nil
}

// ==================== Meal Store ====================

func (s *Store) CreateMeal(ctx context.Context, m *meal.Meal) error {
	if err := s.db.WithContext(ctx).Create(toMealModel(m)).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return grain.ErrAlreadyExists
		}
		return s.wrap("create meal", err)
	}
	return nil
}

func (s *Store) GetMeal(ctx context.Context, mealID id.MealID) (*meal.Meal, error) {
	var m mealModel
	if err := s.db.WithContext(ctx).Where("id = ?", mealID.String()).First(&m).Error; err != nil {
		return nil, s.notFound("get meal", err, grain.ErrMealNotFound)
	}
	return fromMealModel(&m)
}

func (s *Store) ListMeals(ctx context.Context, ownerID id.ProfileID, opts meal.ListOpts) ([]*meal.Meal, error) {
	var models []mealModel
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID.String())
	if !opts.From.IsZero() {
		q = q.Where("eaten_at >= ?", opts.From)
	}
	if !opts.To.IsZero() {
		q = q.Where("eaten_at < ?", opts.To)
	}
	q = q.Order("eaten_at, created_at, id")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, s.wrap("list meals", err)
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
	var models []eventModel
	q := s.db.WithContext(ctx).Where("owner_id = ?", ownerID.String())
	if opts.Action != "" {
		q = q.Where("action = ?", string(opts.Action))
	}
	if !opts.Start.IsZero() {
		q = q.Where("occurred_at >= ?", opts.Start)
	}
	if !opts.End.IsZero() {
		q = q.Where("occurred_at < ?", opts.End)
	}
	q = q.Order("occurred_at DESC, id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	if err := q.Find(&models).Error; err != nil {
		return nil, s.wrap("list events", err)
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
	res := s.db.WithContext(ctx).Where("occurred_at < ?", before).Delete(&eventModel{})
	if res.Error != nil {
		return 0, s.wrap("purge events", res.Error)
	}
	return res.RowsAffected, nil
}

// ==================== Commit ====================

// Commit writes cs inside one database transaction. An update or delete
// that matches no row aborts the whole transaction.
func (s *Store) Commit(ctx context.Context, cs *grainstore.ChangeSet) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, ing := range cs.CreatedIngredients {
			if err := tx.Create(toIngredientModel(ing)).Error; err != nil {
				return fmt.Errorf("create ingredient %s: %w", ing.ID, err)
			}
		}
		for _, ing := range cs.Ingredients {
			if err := update(tx, toIngredientModel(ing), ing.ID.String(), ing.Version, grain.ErrIngredientNotFound); err != nil {
				return fmt.Errorf("update ingredient %s: %w", ing.ID, err)
			}
		}
		for _, t := range cs.CreatedTickets {
			if err := tx.Create(toTicketModel(t)).Error; err != nil {
				return fmt.Errorf("create ticket %s: %w", t.ID, err)
			}
		}
		for _, t := range cs.Tickets {
			if err := update(tx, toTicketModel(t), t.ID.String(), t.Version, grain.ErrTicketNotFound); err != nil {
				return fmt.Errorf("update ticket %s: %w", t.ID, err)
			}
		}
		for _, ticketID := range cs.DeletedTickets {
			res := tx.Where("id = ?", ticketID.String()).Delete(&ticketModel{})
			if res.Error != nil {
				return fmt.Errorf("delete ticket %s: %w", ticketID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("delete ticket %s: %w", ticketID, grain.ErrTicketNotFound)
			}
		}
		for _, d := range cs.Dishes {
			if err := update(tx, toDishModel(d), d.ID.String(), d.Version, grain.ErrDishNotFound); err != nil {
				return fmt.Errorf("update dish %s: %w", d.ID, err)
			}
		}
		for _, m := range cs.Meals {
			if err := update(tx, toMealModel(m), m.ID.String(), m.Version, grain.ErrMealNotFound); err != nil {
				return fmt.Errorf("update meal %s: %w", m.ID, err)
			}
		}
		if len(cs.Events) > 0 {
			models := make([]*eventModel, 0, len(cs.Events))
			for _, e := range cs.Events {
				models = append(models, toEventModel(e))
			}
			if err := tx.Create(&models).Error; err != nil {
				return fmt.Errorf("append events: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return s.wrap("commit", err)
	}
	return nil
}

// update rewrites every column of the row matching model's primary key
// except created_at, but only while the row is still at version-1.
func update(tx *gorm.DB, model any, rowID string, version int64, missing error) error {
	res := tx.Model(model).Where("version = ?", version-1).Select("*").Omit("created_at").Updates(model)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := tx.Model(model).Where("id = ?", rowID).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return fmt.Errorf("version %d is stale: %w", version-1, grain.ErrConcurrentUpdate)
}
