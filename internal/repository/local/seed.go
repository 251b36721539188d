package local

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ldotspots/zuco-motors/internal/models"
	"github.com/ldotspots/zuco-motors/internal/pricing"
	"github.com/ldotspots/zuco-motors/internal/repository"
)

// DemoAccount is a seeded login.
type DemoAccount struct {
	Email    string
	Password string
}

var DemoAccounts = []DemoAccount{
	{Email: "dealer@zucomotors.co.nz", Password: "Dealer#2024"},
	{Email: "agent@zucomotors.co.nz", Password: "Agent#2024"},
	{Email: "buyer@example.co.nz", Password: "Buyer#2024"},
}

// DemoSeed fills a fresh store with one account per role and a small
// inventory. hash turns each demo password into its stored form.
func DemoSeed(hash func(string) ([]byte, error)) Seeder {
	return func() (Dataset, error) {
		now := time.Now().UTC()

		hashes := make([][]byte, len(DemoAccounts))
		for i, acct := range DemoAccounts {
			h, err := hash(acct.Password)
			if err != nil {
				return nil, err
			}
			hashes[i] = h
		}

		users := []models.User{
			{
				ID:             "DLR001",
				Email:          DemoAccounts[0].Email,
				PasswordHash:   hashes[0],
				Role:           models.UserRoleDealer,
				FirstName:      "Aroha",
				LastName:       "Ngata",
				Phone:          "021 555 0101",
				EmployeeID:     "EMP-1001",
				CommissionRate: 0.03,
				Profile:        models.Profile{Department: "Sales", Supervisor: "Robert Chen", SalesTarget: 150000},
				CreatedAt:      now,
				LastLogin:      now,
			},
			{
				ID:             "AGT001",
				Email:          DemoAccounts[1].Email,
				PasswordHash:   hashes[1],
				Role:           models.UserRoleSalesAgent,
				FirstName:      "Liam",
				LastName:       "Tane",
				Phone:          "021 555 0102",
				CommissionRate: 0.03,
				Profile:        models.Profile{Region: "Auckland", Specialization: "SUVs", SalesTarget: 90000},
				CreatedAt:      now,
				LastLogin:      now,
			},
			{
				ID:           "USR001",
				Email:        DemoAccounts[2].Email,
				PasswordHash: hashes[2],
				Role:         models.UserRoleBuyer,
				FirstName:    "Mere",
				LastName:     "Walker",
				Phone:        "021 555 0103",
				Profile: models.Profile{
					PreferredContact:  "email",
					SavedSearches:     []string{},
					Favorites:         []string{},
					NotificationPrefs: &models.NotificationPrefs{Email: true},
				},
				CreatedAt: now,
				LastLogin: now,
			},
		}

		vehicles := []models.Vehicle{
			demoVehicle("VEH001", 2023, "Toyota", "RAV4", "GX Hybrid", "SUV", "Hybrid", 12400, "33500", "0.08", now.Add(-72*time.Hour)),
			demoVehicle("VEH002", 2021, "Mazda", "CX-5", "Limited", "SUV", "Petrol", 38900, "27800", "0.07", now.Add(-48*time.Hour)),
			demoVehicle("VEH003", 2022, "Ford", "Ranger", "XLT", "Ute", "Diesel", 45100, "41200", "0.06", now.Add(-24*time.Hour)),
			demoVehicle("VEH004", 2024, "Tesla", "Model 3", "Long Range", "Sedan", "Electric", 3100, "58900", "0.05", now),
		}
		vehicles[1].AssignedAgentID = "AGT001"

		return Dataset{
			repository.TableUsers:    users,
			repository.TableVehicles: vehicles,
			repository.TableAllocations: []models.Allocation{
				{ID: "ALC001", VehicleID: "VEH002", AgentID: "AGT001", Status: models.AllocationStatusActive, AllocatedAt: now},
			},
		}, nil
	}
}

func demoVehicle(id string, year int, mk, model, trim, body, fuel string, mileage int, invoice, markup string, added time.Time) models.Vehicle {
	cost := decimal.RequireFromString(invoice)
	p := pricing.Apply(models.Pricing{
		InvoiceCost:   cost,
		MSRP:          cost.Mul(decimal.RequireFromString("1.12")).Round(0),
		MinMarkup:     decimal.RequireFromString("0.03"),
		MaxMarkup:     decimal.RequireFromString("0.12"),
		CurrentMarkup: decimal.RequireFromString(markup),
		Holdback:      cost.Mul(decimal.RequireFromString("0.02")).Round(0),
		Incentives:    decimal.Zero,
	})
	condition := "Used"
	if mileage < 5000 {
		condition = "New"
	}
	return models.Vehicle{
		ID:            id,
		VIN:           "JTM" + id + "000000",
		StockNumber:   "STK-" + id[3:],
		Year:          year,
		Make:          mk,
		Model:         model,
		Trim:          trim,
		BodyStyle:     body,
		Condition:     condition,
		ExteriorColor: "White",
		InteriorColor: "Black",
		Mileage:       mileage,
		Specs:         models.Specs{FuelType: fuel, Transmission: "Automatic", Doors: 4, Seats: 5},
		Pricing:       p,
		Status:        models.VehicleStatusAvailable,
		Images:        []string{},
		Features:      []string{},
		AddedDate:     added,
		UpdatedAt:     added,
	}
}
