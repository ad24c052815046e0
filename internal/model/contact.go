// internal/model/contact.go
package model

import "time"

// Priority ranks a contact inside its batch.
type Priority string

const (
    PriorityLow      Priority = "LOW"
    PriorityMedium   Priority = "MEDIUM"
    PriorityHigh     Priority = "HIGH"
    PriorityCritical Priority = "CRITICAL"
)

func (p Priority) IsValid() bool {
    switch p {
    case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
        return true
    }
    return false
}

// Contact is one person/phone number awaiting a call, created in bulk at
// file-upload time and mutated only as call outcomes arrive.
type Contact struct {
    ID              int        `db:"id" json:"id"`
    BatchID         int        `db:"batch_id" json:"batch_id"`
    Phone           string     `db:"phone" json:"phone"`
    NormalizedPhone string     `db:"normalized_phone" json:"normalized_phone"`
    ContactName     string     `db:"contact_name" json:"contact_name"`
    PatientName     string     `db:"patient_name" json:"patient_name"`
    Address         string     `db:"address" json:"address"`
    Locality        string     `db:"locality" json:"locality"`
    Province        string     `db:"province" json:"province"`
    DeliveryDate    string     `db:"delivery_date" json:"delivery_date"`
    Product1        string     `db:"product1" json:"product1"`
    Quantity1       string     `db:"quantity1" json:"quantity1"`
    Product2        string     `db:"product2" json:"product2"`
    Quantity2       string     `db:"quantity2" json:"quantity2"`
    Product3        string     `db:"product3" json:"product3"`
    Quantity3       string     `db:"quantity3" json:"quantity3"`
    Product4        string     `db:"product4" json:"product4"`
    Quantity4       string     `db:"quantity4" json:"quantity4"`
    Product5        string     `db:"product5" json:"product5"`
    Quantity5       string     `db:"quantity5" json:"quantity5"`
    Notes           string     `db:"notes" json:"notes"`
    Priority        Priority   `db:"priority" json:"priority"`
    OrderStatus     string     `db:"order_status" json:"order_status"`
    CallStatus      string     `db:"call_status" json:"call_status"`
    CallResult      string     `db:"call_result" json:"call_result,omitempty"`
    CalledAt        *time.Time `db:"called_at" json:"called_at,omitempty"`
    CallDurationSecs int       `db:"call_duration_secs" json:"call_duration_secs"`
    CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}
