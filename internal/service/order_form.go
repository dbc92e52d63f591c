package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/utils"
)

// ItemForm is one editable order line.
type ItemForm struct {
	ProductID int     `json:"productId" validate:"required"`
	Qty       int     `json:"qty" validate:"min=1"`
	Price     float64 `json:"price" validate:"min=0"`
}

// OrderForm is the editable part of an order.
type OrderForm struct {
	CustomerName string     `json:"customerName" validate:"required,min=3"`
	Status       string     `json:"status" validate:"required,oneof=new processing"`
	Items        []ItemForm `json:"items" validate:"required,min=1,dive"`
}

// FieldError describes one invalid form field.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of a form.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	names := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		names[i] = f.Field
	}
	return fmt.Sprintf("invalid fields: %s", strings.Join(names, ", "))
}

func (e *ValidationError) Unwrap() error { return utils.ErrValidation }

var formValidator = newFormValidator()

func newFormValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateForm checks every rule of the form and reports all failures.
func ValidateForm(form OrderForm) error {
	err := formValidator.Struct(form)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate order form: %w", err)
	}
	out := &ValidationError{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fieldPath(fe.Namespace()),
			Rule:    fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return out
}

// fieldPath drops the struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must have at least %s entry", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// OrderToForm copies the editable fields of o into a form.
func OrderToForm(o *models.Order) OrderForm {
	form := OrderForm{
		CustomerName: o.CustomerName,
		Status:       string(o.Status),
		Items:        make([]ItemForm, len(o.Items)),
	}
	for i, it := range o.Items {
		form.Items[i] = ItemForm{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price}
	}
	return form
}

// FormToOrder builds the order to submit from base and form. Identity
// fields come from base and the total is recomputed from the items.
func FormToOrder(base *models.Order, form OrderForm) *models.Order {
	out := &models.Order{
		ID:           base.ID,
		Number:       base.Number,
		CustomerName: strings.TrimSpace(form.CustomerName),
		Status:       models.OrderStatus(form.Status),
		Items:        make([]models.OrderItem, len(form.Items)),
		CreatedAt:    base.CreatedAt,
	}
	for i, it := range form.Items {
		out.Items[i] = models.OrderItem{ProductID: it.ProductID, Qty: it.Qty, Price: it.Price}
	}
	out.Total = models.ItemsTotal(out.Items)
	return out
}

// Total sums qty * price over the form items.
func (f OrderForm) Total() float64 {
	var sum float64
	for _, it := range f.Items {
		sum += float64(it.Qty) * it.Price
	}
	return models.RoundCents(sum)
}

// Clone deep-copies the form.
func (f OrderForm) Clone() OrderForm {
	if f.Items != nil {
		items := make([]ItemForm, len(f.Items))
		copy(items, f.Items)
		f.Items = items
	}
	return f
}
