package repository

import (
    "database/sql"
    "time"

    "github.com/ralborta/nutryhome-backend/internal/model"
)

// ContactRepositoryInterface defines the contact reads/writes used by the
// orchestrator and reconciler.
type ContactRepositoryInterface interface {
    ListByBatch(batchID int) ([]model.Contact, error)
    BulkCreate(contacts []model.Contact) (int, error)
    UpdateCallOutcome(contactID int, status, result string, durationSecs int) error
}

type ContactRepository struct {
    DB *sql.DB
}

func (r *ContactRepository) ListByBatch(batchID int) ([]model.Contact, error) {
    query := `
        SELECT id, batch_id, phone, normalized_phone, contact_name, patient_name,
               address, locality, province, delivery_date,
               product1, quantity1, product2, quantity2, product3, quantity3,
               product4, quantity4, product5, quantity5,
               notes, priority, order_status, call_status, call_result,
               called_at, call_duration_secs, created_at
        FROM contacts
        WHERE batch_id=$1
        ORDER BY id
    `
    rows, err := r.DB.Query(query, batchID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    contacts := []model.Contact{}
    for rows.Next() {
        var c model.Contact
        if err := rows.Scan(
            &c.ID, &c.BatchID, &c.Phone, &c.NormalizedPhone, &c.ContactName, &c.PatientName,
            &c.Address, &c.Locality, &c.Province, &c.DeliveryDate,
            &c.Product1, &c.Quantity1, &c.Product2, &c.Quantity2, &c.Product3, &c.Quantity3,
            &c.Product4, &c.Quantity4, &c.Product5, &c.Quantity5,
            &c.Notes, &c.Priority, &c.OrderStatus, &c.CallStatus, &c.CallResult,
            &c.CalledAt, &c.CallDurationSecs, &c.CreatedAt,
        ); err != nil {
            return nil, err
        }
        contacts = append(contacts, c)
    }
    return contacts, rows.Err()
}

// BulkCreate inserts uploaded contacts, skipping duplicates on the batch +
// phone unique index. Returns how many rows were actually inserted.
func (r *ContactRepository) BulkCreate(contacts []model.Contact) (int, error) {
    query := `
        INSERT INTO contacts (
            batch_id, phone, normalized_phone, contact_name, patient_name,
            address, locality, province, delivery_date,
            product1, quantity1, product2, quantity2, product3, quantity3,
            product4, quantity4, product5, quantity5,
            notes, priority, order_status, call_status, created_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
                $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
        ON CONFLICT (batch_id, phone) DO NOTHING
    `
    inserted := 0
    now := time.Now()
    for _, c := range contacts {
        if c.Priority == "" {
            c.Priority = model.PriorityMedium
        }
        if c.CallStatus == "" {
            c.CallStatus = string(model.CallPending)
        }
        res, err := r.DB.Exec(query,
            c.BatchID, c.Phone, c.NormalizedPhone, c.ContactName, c.PatientName,
            c.Address, c.Locality, c.Province, c.DeliveryDate,
            c.Product1, c.Quantity1, c.Product2, c.Quantity2, c.Product3, c.Quantity3,
            c.Product4, c.Quantity4, c.Product5, c.Quantity5,
            c.Notes, c.Priority, c.OrderStatus, c.CallStatus, now,
        )
        if err != nil {
            return inserted, err
        }
        if n, err := res.RowsAffected(); err == nil {
            inserted += int(n)
        }
    }
    return inserted, nil
}

func (r *ContactRepository) UpdateCallOutcome(contactID int, status, result string, durationSecs int) error {
    query := `
        UPDATE contacts
        SET call_status=$1, call_result=$2, call_duration_secs=$3, called_at=NOW()
        WHERE id=$4
    `
    _, err := r.DB.Exec(query, status, result, durationSecs, contactID)
    return err
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
