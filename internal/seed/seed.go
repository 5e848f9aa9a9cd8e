// Package seed loads an initial dataset of users and projects from JSON.
// The file is validated against a schema before anything touches the tables,
// so a bad dataset is rejected whole.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"bto-allocation/internal/auth"
	apperrors "bto-allocation/internal/common/errors"
	"bto-allocation/internal/common/logger"
	"bto-allocation/internal/models"
	"bto-allocation/internal/tables"
)

const datasetSchema = `{
	"type": "object",
	"required": ["users"],
	"properties": {
		"users": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["nric", "name", "age", "maritalStatus", "role", "password"],
				"properties": {
					"nric": {"type": "string", "pattern": "^[STFG]\\d{7}[A-Z]$"},
					"name": {"type": "string", "minLength": 1},
					"age": {"type": "integer", "minimum": 0},
					"maritalStatus": {"type": "string", "enum": ["Married", "Single"]},
					"role": {"type": "string", "enum": ["applicant", "officer", "manager"]},
					"email": {"type": "string"},
					"phone": {"type": "string"},
					"password": {"type": "string", "minLength": 8}
				}
			}
		},
		"projects": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "neighborhood", "openDate", "closeDate", "managerNric", "officerSlots", "flats"],
				"properties": {
					"name": {"type": "string", "minLength": 1},
					"neighborhood": {"type": "string", "minLength": 1},
					"openDate": {"type": "string", "format": "date"},
					"closeDate": {"type": "string", "format": "date"},
					"visible": {"type": "boolean"},
					"managerNric": {"type": "string"},
					"officerSlots": {"type": "integer", "minimum": 0, "maximum": 10},
					"flats": {
						"type": "object",
						"additionalProperties": {
							"type": "object",
							"required": ["units", "priceCents"],
							"properties": {
								"units": {"type": "integer", "minimum": 0},
								"priceCents": {"type": "integer", "minimum": 0}
							}
						}
					}
				}
			}
		}
	}
}`

type userRecord struct {
	NRIC          string `json:"nric"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	MaritalStatus string `json:"maritalStatus"`
	Role          string `json:"role"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Password      string `json:"password"`
}

type flatRecord struct {
	Units      int   `json:"units"`
	PriceCents int64 `json:"priceCents"`
}

type projectRecord struct {
	Name         string                `json:"name"`
	Neighborhood string                `json:"neighborhood"`
	OpenDate     string                `json:"openDate"`
	CloseDate    string                `json:"closeDate"`
	Visible      bool                  `json:"visible"`
	ManagerNRIC  string                `json:"managerNric"`
	OfficerSlots int                   `json:"officerSlots"`
	Flats        map[string]flatRecord `json:"flats"`
}

type dataset struct {
	Users    []userRecord    `json:"users"`
	Projects []projectRecord `json:"projects"`
}

type Loader struct {
	tables     *tables.Tables
	log        logger.Logger
	bcryptCost int
}

func NewLoader(t *tables.Tables, bcryptCost int, log logger.Logger) *Loader {
	return &Loader{
		tables:     t,
		log:        log.WithFields(map[string]interface{}{"component": "seed"}),
		bcryptCost: bcryptCost,
	}
}

// Validate checks the raw JSON against the dataset schema.
func Validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(datasetSchema)
	documentLoader := gojsonschema.NewBytesLoader(data)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return apperrors.NewInvalidInputError("dataset is not valid JSON: " + err.Error())
	}
	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return apperrors.NewInvalidInputError("dataset validation failed: " + strings.Join(errs, "; "))
	}
	return nil
}

// LoadFile reads, validates, and applies a dataset file.
func (l *Loader) LoadFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}
	return l.Load(ctx, data)
}

// Load applies a validated dataset to the tables. Users come first so that
// project manager references resolve.
func (l *Loader) Load(ctx context.Context, data []byte) error {
	if err := Validate(data); err != nil {
		return err
	}
	var ds dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return apperrors.NewInvalidInputError("dataset parse failed: " + err.Error())
	}

	users := make([]*models.User, 0, len(ds.Users))
	for _, r := range ds.Users {
		hash, err := auth.HashPassword(r.Password, l.bcryptCost)
		if err != nil {
			return apperrors.NewInvalidInputError("password for " + r.NRIC + " not hashable")
		}
		users = append(users, &models.User{
			NRIC:          r.NRIC,
			Name:          r.Name,
			Age:           r.Age,
			MaritalStatus: models.MaritalStatus(r.MaritalStatus),
			Role:          models.Role(r.Role),
			Email:         r.Email,
			Phone:         r.Phone,
			PasswordHash:  hash,
		})
	}

	projects := make([]*models.Project, 0, len(ds.Projects))
	for _, r := range ds.Projects {
		open, err := time.Parse("2006-01-02", r.OpenDate)
		if err != nil {
			return apperrors.NewInvalidInputError("project " + r.Name + ": bad open date")
		}
		closeDate, err := time.Parse("2006-01-02", r.CloseDate)
		if err != nil {
			return apperrors.NewInvalidInputError("project " + r.Name + ": bad close date")
		}
		flats := make(map[models.FlatType]models.FlatStock, len(r.Flats))
		for ft, stock := range r.Flats {
			if ft != string(models.TwoRoom) && ft != string(models.ThreeRoom) {
				return apperrors.NewInvalidInputError("project " + r.Name + ": unknown flat type " + ft)
			}
			flats[models.FlatType(ft)] = models.FlatStock{
				Units:      stock.Units,
				PriceCents: stock.PriceCents,
			}
		}
		projects = append(projects, &models.Project{
			Name:         r.Name,
			Neighborhood: r.Neighborhood,
			OpenDate:     open,
			CloseDate:    closeDate,
			Visible:      r.Visible,
			ManagerNRIC:  r.ManagerNRIC,
			OfficerSlots: r.OfficerSlots,
			Flats:        flats,
		})
	}

	err := l.tables.Update(ctx, func(tx *tables.Tx) error {
		for _, u := range users {
			tx.PutUser(u)
		}
		for _, p := range projects {
			if _, ok := tx.User(p.ManagerNRIC); !ok {
				return apperrors.NewInvalidInputError("project " + p.Name + ": unknown manager " + p.ManagerNRIC)
			}
			tx.PutProject(p)
		}
		return nil
	})
	if err != nil {
		return err
	}

	l.log.Info("dataset loaded", map[string]interface{}{
		"users":    len(users),
		"projects": len(projects),
	})
	return nil
}
