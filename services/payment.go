package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/Sadiakamal27/one-rupee-game/models"
	"github.com/Sadiakamal27/one-rupee-game/utils"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func init() {
	rand.Seed(time.Now().UnixNano())
}

// ErrMissingFields is returned when an order is created without all of the
// required checkout fields.
var ErrMissingFields = errors.New("missing required fields")

// maxCodeAttempts bounds the advisory uniqueness-retry loop for order
// codes. The unique index on orders.order_id is the real guarantee.
const maxCodeAttempts = 10

// PaymentGateway initiates a payment for an order with an external
// processor. The game treats the processor as a black box: it answers
// whether the charge went through, nothing more.
type PaymentGateway interface {
	InitiatePayment(ctx context.Context, amount float64, orderID string) (bool, error)
}

// EasypaisaGateway is the placeholder Easypaisa integration: it reports
// success after a fixed delay. A production deployment replaces this type
// with a real API client behind the same interface.
type EasypaisaGateway struct {
	Delay time.Duration
}

func NewEasypaisaGateway() *EasypaisaGateway {
	return &EasypaisaGateway{Delay: time.Second}
}

func (g *EasypaisaGateway) InitiatePayment(ctx context.Context, amount float64, orderID string) (bool, error) {
	log.Infof("Easypaisa stub: charging %.2f for order %s", amount, orderID)
	select {
	case <-time.After(g.Delay):
		return true, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// PaymentService creates entry orders and walks them through the payment
// lifecycle: pending on checkout, then completed or failed once the
// gateway answers. Orders are immutable after reaching a final status.
type PaymentService struct {
	gateway PaymentGateway
}

func NewPaymentService(gateway PaymentGateway) *PaymentService {
	return &PaymentService{gateway: gateway}
}

// CreateOrderInput carries the checkout form fields.
type CreateOrderInput struct {
	Name             string  `json:"name"`
	EasypaisaAccount string  `json:"easypaisa_account"`
	PlanID           uint    `json:"plan_id"`
	Amount           float64 `json:"amount"`
}

// CreateOrder validates the checkout fields and persists a pending order,
// stamping the plan's current cycle-start marker onto it so later reads
// can bucket it correctly even after the plan resets.
func (ps *PaymentService) CreateOrder(input CreateOrderInput) (*models.Order, error) {
	if input.Name == "" || input.EasypaisaAccount == "" || input.PlanID == 0 || input.Amount <= 0 {
		return nil, ErrMissingFields
	}

	var plan models.GamePlan
	if err := utils.DB.First(&plan, input.PlanID).Error; err != nil {
		return nil, fmt.Errorf("plan %d: %w", input.PlanID, err)
	}

	order := &models.Order{
		OrderID:          ps.generateUniqueOrderCode(),
		Name:             input.Name,
		EasypaisaAccount: input.EasypaisaAccount,
		PlanID:           plan.ID,
		Amount:           input.Amount,
		PaymentStatus:    models.StatusPending,
		CycleStartDate:   plan.LastResetDate,
	}

	if err := utils.DB.Create(order).Error; err != nil {
		return nil, err
	}

	log.Infof("Order %s created for plan %d (%s), amount %.2f",
		order.OrderID, plan.ID, plan.RewardTitle, order.Amount)
	return order, nil
}

// generateUniqueOrderCode draws random 7-digit codes until one is free,
// falling back to a timestamp-derived code after maxCodeAttempts. The
// existence check is advisory (two concurrent checkouts can both pass);
// the column's unique index catches the race.
func (ps *PaymentService) generateUniqueOrderCode() string {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := utils.GenerateOrderCode()

		var count int64
		if err := utils.DB.Model(&models.Order{}).
			Where("order_id = ?", code).
			Count(&count).Error; err != nil {
			log.Warnf("Order code uniqueness check failed: %v", err)
			return code
		}
		if count == 0 {
			return code
		}
	}
	return utils.TimestampOrderCode()
}

// ProcessPayment runs the gateway for a pending order and records the
// outcome. On success the order moves to completed and the plan's
// accumulated amount grows by the order amount; on gateway failure the
// order moves to failed. Either way the final state is returned.
func (ps *PaymentService) ProcessPayment(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := utils.DB.First(&order, orderID).Error; err != nil {
		return nil, err
	}
	if order.PaymentStatus != models.StatusPending {
		// Final statuses are immutable
		return &order, nil
	}

	ok, err := ps.gateway.InitiatePayment(ctx, order.Amount, order.OrderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if errMark := ps.markOrderFailed(&order); errMark != nil {
			return nil, errMark
		}
		log.Warnf("Payment failed for order %s", order.OrderID)
		return &order, nil
	}

	if err := ps.CompleteOrder(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CompleteOrder transitions a pending order to completed and credits the
// plan's current cycle. The status flip is guarded on the pending state
// and the plan credit is guarded on the cycle marker, so a reset landing
// mid-payment can never leak an old cycle's money into the new one.
func (ps *PaymentService) CompleteOrder(order *models.Order) error {
	return utils.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND payment_status = ?", order.ID, models.StatusPending).
			Update("payment_status", models.StatusCompleted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// Already settled elsewhere
			return nil
		}
		order.PaymentStatus = models.StatusCompleted

		credit := tx.Model(&models.GamePlan{}).
			Where("id = ?", order.PlanID)
		if order.CycleStartDate == nil {
			credit = credit.Where("last_reset_date IS NULL")
		} else {
			credit = credit.Where("last_reset_date = ?", order.CycleStartDate)
		}
		if err := credit.
			Update("current_amount", gorm.Expr("current_amount + ?", order.Amount)).Error; err != nil {
			return err
		}

		log.Infof("Order %s completed, plan %d credited %.2f", order.OrderID, order.PlanID, order.Amount)
		return nil
	})
}

func (ps *PaymentService) markOrderFailed(order *models.Order) error {
	res := utils.DB.Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, models.StatusPending).
		Update("payment_status", models.StatusFailed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		order.PaymentStatus = models.StatusFailed
	}
	return nil
}

// GetOrderByCode loads an order by its 7-digit code, with its plan.
func (ps *PaymentService) GetOrderByCode(code string) (*models.Order, error) {
	var order models.Order
	if err := utils.DB.Preload("Plan").
		Where("order_id = ?", code).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
