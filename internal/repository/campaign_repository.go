package repository

import (
    "database/sql"
    "time"

    "github.com/ralborta/nutryhome-backend/internal/model"
)

// CampaignRepositoryInterface covers the container entity. Campaigns are
// managed elsewhere; the orchestration core only needs to resolve them.
type CampaignRepositoryInterface interface {
    Create(c *model.Campaign) error
    GetByID(id int) (*model.Campaign, error)
}

type CampaignRepository struct {
    DB *sql.DB
}

func (r *CampaignRepository) Create(c *model.Campaign) error {
    c.CreatedAt = time.Now()
    query := `INSERT INTO campaigns (name, created_at) VALUES ($1, $2) RETURNING id`
    return r.DB.QueryRow(query, c.Name, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
    query := `SELECT id, name, created_at, updated_at FROM campaigns WHERE id=$1`
    var c model.Campaign
    err := r.DB.QueryRow(query, id).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
    if err != nil {
        if err == sql.ErrNoRows {
            return nil, nil
        }
        return nil, err
    }
    return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
