package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

// Money columns hold the decimal amount as text so no dialect rounds it.

// ==================== Profile models ====================

type profileModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserRef   string    `gorm:"index;size:255"`
	Note      string    `gorm:"type:text"`
	Currency  string    `gorm:"size:3;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (profileModel) TableName() string { return "grain_profiles" }

func toProfileModel(p *profile.Profile) *profileModel {
	return &profileModel{
		ID:        p.ID.String(),
		UserRef:   p.UserRef,
		Note:      p.Note,
		Currency:  p.Currency,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func fromProfileModel(m *profileModel) (*profile.Profile, error) {
	profileID, err := id.ParseProfileID(m.ID)
	if err != nil {
		return nil, err
	}
	return &profile.Profile{
		Entity:   types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ID:       profileID,
		UserRef:  m.UserRef,
		Note:     m.Note,
		Currency: m.Currency,
	}, nil
}

// ==================== Ingredient models ====================

type ingredientModel struct {
	ID            string          `gorm:"primaryKey;size:64"`
	OwnerID       string          `gorm:"index:idx_grain_ingredients_owner;size:64;not null"`
	ProductName   string          `gorm:"size:255"`
	Units         string          `gorm:"size:32"`
	PriceAmount   decimal.Decimal `gorm:"type:text;not null"`
	PriceCurrency string          `gorm:"size:3;not null"`
	TotalAmount   float64         `gorm:"not null"`
	UsedAmount    float64         `gorm:"not null"`
	Exhausted     bool            `gorm:"index:idx_grain_ingredients_owner;not null"`
	BestBefore    time.Time
	ExpiryType    string `gorm:"size:3"`
	PurchaseDate  time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
	Version       int64     `gorm:"not null;default:0"`
}

func (ingredientModel) TableName() string { return "grain_ingredients" }

func toIngredientModel(i *ingredient.Ingredient) *ingredientModel {
	return &ingredientModel{
		ID:            i.ID.String(),
		OwnerID:       i.OwnerID.String(),
		ProductName:   i.ProductName,
		Units:         i.Units,
		PriceAmount:   i.Price.Amount,
		PriceCurrency: i.Price.Currency,
		TotalAmount:   i.TotalAmount,
		UsedAmount:    i.UsedAmount,
		Exhausted:     i.Exhausted,
		BestBefore:    i.BestBefore,
		ExpiryType:    string(i.ExpiryType),
		PurchaseDate:  i.PurchaseDate,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		Version:       i.Version,
	}
}

func fromIngredientModel(m *ingredientModel) (*ingredient.Ingredient, error) {
	ingredientID, err := id.ParseIngredientID(m.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.ParseProfileID(m.OwnerID)
	if err != nil {
		return nil, err
	}
	return &ingredient.Ingredient{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:           ingredientID,
		OwnerID:      ownerID,
		ProductName:  m.ProductName,
		Units:        m.Units,
		Price:        types.New(m.PriceAmount, m.PriceCurrency),
		TotalAmount:  m.TotalAmount,
		UsedAmount:   m.UsedAmount,
		Exhausted:    m.Exhausted,
		BestBefore:   m.BestBefore,
		ExpiryType:   ingredient.ExpiryType(m.ExpiryType),
		PurchaseDate: m.PurchaseDate,
	}, nil
}

// ==================== Ticket models ====================

type ticketModel struct {
	ID           string          `gorm:"primaryKey;size:64"`
	IngredientID string          `gorm:"index;size:64;not null"`
	DishID       string          `gorm:"index;size:64;not null"`
	Used         float64         `gorm:"not null"`
	CostAmount   decimal.Decimal `gorm:"type:text;not null"`
	CostCurrency string          `gorm:"size:3;not null"`
	Final        bool            `gorm:"not null"`
	CreatedAt    time.Time       `gorm:"not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
	Version      int64           `gorm:"not null;default:0"`
}

func (ticketModel) TableName() string { return "grain_tickets" }

func toTicketModel(t *ticket.Ticket) *ticketModel {
	return &ticketModel{
		ID:           t.ID.String(),
		IngredientID: t.IngredientID.String(),
		DishID:       t.DishID.String(),
		Used:         t.Used,
		CostAmount:   t.Cost.Amount,
		CostCurrency: t.Cost.Currency,
		Final:        t.Final,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
	}
}

func fromTicketModel(m *ticketModel) (*ticket.Ticket, error) {
	ticketID, err := id.ParseTicketID(m.ID)
	if err != nil {
		return nil, err
	}
	ingredientID, err := id.ParseIngredientID(m.IngredientID)
	if err != nil {
		return nil, err
	}
	dishID, err := id.ParseDishID(m.DishID)
	if err != nil {
		return nil, err
	}
	return &ticket.Ticket{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:           ticketID,
		IngredientID: ingredientID,
		DishID:       dishID,
		Used:         m.Used,
		Cost:         types.New(m.CostAmount, m.CostCurrency),
		Final:        m.Final,
	}, nil
}

// ==================== Dish models ====================

type dishModel struct {
	ID               string          `gorm:"primaryKey;size:64"`
	MealID           string          `gorm:"index;size:64;not null"`
	Name             string          `gorm:"size:255"`
	Method           string          `gorm:"size:16"`
	CostOpenAmount   decimal.Decimal `gorm:"type:text;not null"`
	CostClosedAmount decimal.Decimal `gorm:"type:text;not null"`
	Currency         string          `gorm:"size:3;not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
	Version          int64           `gorm:"not null;default:0"`
}

func (dishModel) TableName() string { return "grain_dishes" }

func toDishModel(d *dish.Dish) *dishModel {
	return &dishModel{
		ID:               d.ID.String(),
		MealID:           d.MealID.String(),
		Name:             d.Name,
		Method:           string(d.Method),
		CostOpenAmount:   d.CostOpen.Amount,
		CostClosedAmount: d.CostClosed.Amount,
		Currency:         d.CostOpen.Currency,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}
}

func fromDishModel(m *dishModel) (*dish.Dish, error) {
	dishID, err := id.ParseDishID(m.ID)
	if err != nil {
		return nil, err
	}
	mealID, err := id.ParseMealID(m.MealID)
	if err != nil {
		return nil, err
	}
	return &dish.Dish{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:         dishID,
		MealID:     mealID,
		Name:       m.Name,
		Method:     dish.CookingStyle(m.Method),
		CostOpen:   types.New(m.CostOpenAmount, m.Currency),
		CostClosed: types.New(m.CostClosedAmount, m.Currency),
	}, nil
}

// ==================== Meal models ====================

type mealModel struct {
	ID               string          `gorm:"primaryKey;size:64"`
	OwnerID          string          `gorm:"index:idx_grain_meals_owner_time;size:64;not null"`
	Time             time.Time       `gorm:"column:eaten_at;index:idx_grain_meals_owner_time;not null"`
	Type             string          `gorm:"size:16;not null"`
	Consumer         string          `gorm:"size:255"`
	CostOpenAmount   decimal.Decimal `gorm:"type:text;not null"`
	CostClosedAmount decimal.Decimal `gorm:"type:text;not null"`
	Currency         string          `gorm:"size:3;not null"`
	CreatedAt        time.Time       `gorm:"not null"`
	UpdatedAt        time.Time       `gorm:"not null"`
	Version          int64           `gorm:"not null;default:0"`
}

func (mealModel) TableName() string { return "grain_meals" }

func toMealModel(m *meal.Meal) *mealModel {
	return &mealModel{
		ID:               m.ID.String(),
		OwnerID:          m.OwnerID.String(),
		Time:             m.Time,
		Type:             string(m.Type),
		Consumer:         m.Consumer,
		CostOpenAmount:   m.CostOpen.Amount,
		CostClosedAmount: m.CostClosed.Amount,
		Currency:         m.CostOpen.Currency,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		Version:          m.Version,
	}
}

func fromMealModel(m *mealModel) (*meal.Meal, error) {
	mealID, err := id.ParseMealID(m.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.ParseProfileID(m.OwnerID)
	if err != nil {
		return nil, err
	}
	return &meal.Meal{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:         mealID,
		OwnerID:    ownerID,
		Time:       m.Time,
		Type:       meal.Type(m.Type),
		Consumer:   m.Consumer,
		CostOpen:   types.New(m.CostOpenAmount, m.Currency),
		CostClosed: types.New(m.CostClosedAmount, m.Currency),
	}, nil
}

// ==================== Event models ====================

type eventModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	OwnerID        string          `gorm:"index:idx_grain_events_owner_time;size:64;not null"`
	Action         string          `gorm:"size:32;not null"`
	IngredientID   string          `gorm:"size:64"`
	TicketID       string          `gorm:"size:64"`
	DishID         string          `gorm:"size:64"`
	Quantity       float64         `gorm:"not null"`
	AmountValue    decimal.Decimal `gorm:"type:text;not null"`
	AmountCurrency string          `gorm:"size:3"`
	OccurredAt     time.Time       `gorm:"index:idx_grain_events_owner_time;not null"`
}

func (eventModel) TableName() string { return "grain_events" }

func toEventModel(e *event.Event) *eventModel {
	return &eventModel{
		ID:             e.ID.String(),
		OwnerID:        e.OwnerID.String(),
		Action:         string(e.Action),
		IngredientID:   e.IngredientID.String(),
		TicketID:       e.TicketID.String(),
		DishID:         e.DishID.String(),
		Quantity:       e.Quantity,
		AmountValue:    e.Amount.Amount,
		AmountCurrency: e.Amount.Currency,
		OccurredAt:     e.Timestamp,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	eventID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, err
	}
	ownerID, err := id.ParseProfileID(m.OwnerID)
	if err != nil {
		return nil, err
	}
	e := &event.Event{
		ID:        eventID,
		OwnerID:   ownerID,
		Action:    event.Action(m.Action),
		Quantity:  m.Quantity,
		Amount:    types.New(m.AmountValue, m.AmountCurrency),
		Timestamp: m.OccurredAt,
	}
	if m.IngredientID != "" {
		if e.IngredientID, err = id.ParseIngredientID(m.IngredientID); err != nil {
			return nil, err
		}
	}
	if m.TicketID != "" {
		if e.TicketID, err = id.ParseTicketID(m.TicketID); err != nil {
			return nil, err
		}
	}
	if m.DishID != "" {
		if e.DishID, err = id.ParseDishID(m.DishID); err != nil {
			return nil, err
		}
	}
	return e, nil
}
