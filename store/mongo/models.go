package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/grain/dish"
	"github.com/xraph/grain/event"
	"github.com/xraph/grain/id"
	"github.com/xraph/grain/ingredient"
	"github.com/xraph/grain/meal"
	"github.com/xraph/grain/profile"
	"github.com/xraph/grain/ticket"
	"github.com/xraph/grain/types"
)

// Money amounts are stored as Decimal128 so the server sorts them
// numerically and nothing is lost to floating point.

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("decode amount %s: %w", v, err)
	}
	return d, nil
}

func toMoney(v bson.Decimal128, currency string) (types.Money, error) {
	d, err := fromDecimal128(v)
	if err != nil {
		return types.Money{}, err
	}
	return types.New(d, currency), nil
}

// ==================== Profile models ====================

type profileModel struct {
	ID        string    `bson:"_id"`
	UserRef   string    `bson:"user_ref"`
	Note      string    `bson:"note,omitempty"`
	Currency  string    `bson:"currency"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

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
	ID            string          `bson:"_id"`
	OwnerID       string          `bson:"owner_id"`
	ProductName   string          `bson:"product_name"`
	Units         string          `bson:"units"`
	PriceAmount   bson.Decimal128 `bson:"price_amount"`
	PriceCurrency string          `bson:"price_currency"`
	TotalAmount   float64         `bson:"total_amount"`
	UsedAmount    float64         `bson:"used_amount"`
	Exhausted     bool            `bson:"exhausted"`
	BestBefore    time.Time       `bson:"best_before"`
	ExpiryType    string          `bson:"expiry_type"`
	PurchaseDate  time.Time       `bson:"purchase_date"`
	CreatedAt     time.Time       `bson:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at"`
	Version       int64           `bson:"version"`
}

func toIngredientModel(i *ingredient.Ingredient) (*ingredientModel, error) {
	price, err := toDecimal128(i.Price.Amount)
	if err != nil {
		return nil, err
	}
	return &ingredientModel{
		ID:            i.ID.String(),
		OwnerID:       i.OwnerID.String(),
		ProductName:   i.ProductName,
		Units:         i.Units,
		PriceAmount:   price,
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
	}, nil
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
	price, err := toMoney(m.PriceAmount, m.PriceCurrency)
	if err != nil {
		return nil, err
	}
	return &ingredient.Ingredient{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:           ingredientID,
		OwnerID:      ownerID,
		ProductName:  m.ProductName,
		Units:        m.Units,
		Price:        price,
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
	ID           string          `bson:"_id"`
	IngredientID string          `bson:"ingredient_id"`
	DishID       string          `bson:"dish_id"`
	Used         float64         `bson:"used"`
	CostAmount   bson.Decimal128 `bson:"cost_amount"`
	CostCurrency string          `bson:"cost_currency"`
	Final        bool            `bson:"final"`
	CreatedAt    time.Time       `bson:"created_at"`
	UpdatedAt    time.Time       `bson:"updated_at"`
	Version      int64           `bson:"version"`
}

func toTicketModel(t *ticket.Ticket) (*ticketModel, error) {
	cost, err := toDecimal128(t.Cost.Amount)
	if err != nil {
		return nil, err
	}
	return &ticketModel{
		ID:           t.ID.String(),
		IngredientID: t.IngredientID.String(),
		DishID:       t.DishID.String(),
		Used:         t.Used,
		CostAmount:   cost,
		CostCurrency: t.Cost.Currency,
		Final:        t.Final,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
		Version:      t.Version,
	}, nil
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
	cost, err := toMoney(m.CostAmount, m.CostCurrency)
	if err != nil {
		return nil, err
	}
	return &ticket.Ticket{
		Entity:       types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:           ticketID,
		IngredientID: ingredientID,
		DishID:       dishID,
		Used:         m.Used,
		Cost:         cost,
		Final:        m.Final,
	}, nil
}

// ==================== Dish models ====================

type dishModel struct {
	ID               string          `bson:"_id"`
	MealID           string          `bson:"meal_id"`
	Name             string          `bson:"name"`
	Method           string          `bson:"method"`
	CostOpenAmount   bson.Decimal128 `bson:"cost_open"`
	CostClosedAmount bson.Decimal128 `bson:"cost_closed"`
	Currency         string          `bson:"currency"`
	CreatedAt        time.Time       `bson:"created_at"`
	UpdatedAt        time.Time       `bson:"updated_at"`
	Version          int64           `bson:"version"`
}

func toDishModel(d *dish.Dish) (*dishModel, error) {
	open, err := toDecimal128(d.CostOpen.Amount)
	if err != nil {
		return nil, err
	}
	closed, err := toDecimal128(d.CostClosed.Amount)
	if err != nil {
		return nil, err
	}
	return &dishModel{
		ID:               d.ID.String(),
		MealID:           d.MealID.String(),
		Name:             d.Name,
		Method:           string(d.Method),
		CostOpenAmount:   open,
		CostClosedAmount: closed,
		Currency:         d.CostOpen.Currency,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Version:          d.Version,
	}, nil
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
	open, err := toMoney(m.CostOpenAmount, m.Currency)
	if err != nil {
		return nil, err
	}
	closed, err := toMoney(m.CostClosedAmount, m.Currency)
	if err != nil {
		return nil, err
	}
	return &dish.Dish{
		Entity:     types.Entity{CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt, Version: m.Version},
		ID:         dishID,
		MealID:     mealID,
		Name:       m.Name,
		Method:     dish.CookingStyle(m.Method),
		CostOpen:   open,
		CostClosed: closed,
	}, nil
}

// ==================== Meal models ====================

type mealModel struct {
	ID               string          `bson:"_id"`
	OwnerID          string          `bson:"owner_id"`
	Time             time.Time       `bson:"time"`
	Type             string          `bson:"type"`
	Consumer         string          `bson:"consumer,omitempty"`
	CostOpenAmount   bson.Decimal128 `bson:"cost_open"`
	CostClosedAmount bson.Decimal128 `bson:"cost_closed"`
	Currency         string          `bson:"currency"`
	CreatedAt        time.Time       `bson:"created_at"`
	UpdatedAt        time.Time       `bson:"updated_at"`
	Version          int64           `bson:"version"`
}

func toMealModel(m *meal.Meal) (*mealModel, error) {
	open, err := toDecimal128(m.CostOpen.Amount)
	if err != nil {
		return nil, err
	}
	closed, err := toDecimal128(m.CostClosed.Amount)
	if err != nil {
		return nil, err
	}
	return &mealModel{
		ID:               m.ID.String(),
		OwnerID:          m.OwnerID.String(),
		Time:             m.Time,
		Type:             string(m.Type),
		Consumer:         m.Consumer,
		CostOpenAmount:   open,
		CostClosedAmount: closed,
		Currency:         m.CostOpen.Currency,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
		Version:          m.Version,
	}, nil
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
	open, err := toMoney(m.CostOpenAmount, m.Currency)
	if err != nil {
		return nil, err
	}
	closed, err := toMoney(m.CostClosedAmount, m.Currency)
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
		CostOpen:   open,
		CostClosed: closed,
	}, nil
}

// ==================== Event models ====================

type eventModel struct {
	ID             string          `bson:"_id"`
	OwnerID        string          `bson:"owner_id"`
	Action         string          `bson:"action"`
	IngredientID   string          `bson:"ingredient_id,omitempty"`
	TicketID       string          `bson:"ticket_id,omitempty"`
	DishID         string          `bson:"dish_id,omitempty"`
	Quantity       float64         `bson:"quantity"`
	Amount         bson.Decimal128 `bson:"amount"`
	AmountCurrency string          `bson:"amount_currency,omitempty"`
	Timestamp      time.Time       `bson:"timestamp"`
}

func toEventModel(e *event.Event) (*eventModel, error) {
	amount, err := toDecimal128(e.Amount.Amount)
	if err != nil {
		return nil, err
	}
	return &eventModel{
		ID:             e.ID.String(),
		OwnerID:        e.OwnerID.String(),
		Action:         string(e.Action),
		IngredientID:   e.IngredientID.String(),
		TicketID:       e.TicketID.String(),
		DishID:         e.DishID.String(),
		Quantity:       e.Quantity,
		Amount:         amount,
		AmountCurrency: e.Amount.Currency,
		Timestamp:      e.Timestamp,
	}, nil
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
	amount, err := toMoney(m.Amount, m.AmountCurrency)
	if err != nil {
		return nil, err
	}
	e := &event.Event{
		ID:        eventID,
		OwnerID:   ownerID,
		Action:    event.Action(m.Action),
		Quantity:  m.Quantity,
		Amount:    amount,
		Timestamp: m.Timestamp,
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
