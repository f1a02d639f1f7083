package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DukeRupert/loadshare/internal/domain"
	"github.com/DukeRupert/loadshare/internal/repository"
)

// DemoPassword is the password of the demo accounts.
const DemoPassword = "demo1234"

// TestPassword is the password of the end-to-end test accounts.
const TestPassword = "testpass123"

var demoUsers = []domain.RegisterParams{
	{
		Name: "Sarah Johnson", Email: "sarah@example.com", Phone: "+1-555-0101", Password: DemoPassword,
		Profile: domain.LoadOwnerProfile{Location: "Downtown Seattle, WA"},
	},
	{
		Name: "Mike Chen", Email: "mike@example.com", Phone: "+1-555-0102", Password: DemoPassword,
		Profile: domain.LoadOwnerProfile{Location: "Portland, OR"},
	},
	{
		Name: "Tom Rodriguez", Email: "tom@example.com", Phone: "+1-555-0201", Password: DemoPassword,
		Profile: domain.DriverProfile{
			LicenseInfo: "CDL-A WA123456",
			ServiceArea: "Seattle Metro Area",
			Vehicle:     domain.VehicleInfo{Type: "Pickup Truck", Capacity: "1000 kg", Dimensions: "200x150x100 cm"},
		},
	},
	{
		Name: "Lisa Wong", Email: "lisa@example.com", Phone: "+1-555-0202", Password: DemoPassword,
		Profile: domain.DriverProfile{
			LicenseInfo: "CDL-B OR789012",
			ServiceArea: "Pacific Northwest",
			Vehicle:     domain.VehicleInfo{Type: "Box Truck", Capacity: "2000 kg", Dimensions: "400x200x200 cm"},
		},
	},
	{
		Name: "Test Load Owner", Email: "loadowner@test.com", Phone: "+1-555-0301", Password: TestPassword,
		Profile: domain.LoadOwnerProfile{Location: "Test City"},
	},
	{
		Name: "Test Driver", Email: "driver@test.com", Phone: "+1-555-0302", Password: TestPassword,
		Profile: domain.DriverProfile{
			LicenseInfo: "TEST-123",
			ServiceArea: "Test Region",
			Vehicle:     domain.VehicleInfo{Type: "Van"},
		},
	},
}

type demoLoad struct {
	owner     string
	claimedBy string
	daysOut   int
	weight    float64
	params    domain.CreateLoadParams
	messages  []demoMessage
}

type demoMessage struct {
	from string
	body string
}

var demoLoads = []demoLoad{
	{
		owner: "sarah@example.com", daysOut: 3, weight: 300,
		params: domain.CreateLoadParams{
			Title:               "Moving a vintage piano across town",
			Description:         "Need to transport a 1920s baby grand piano from my current home to new apartment. Very delicate and valuable. Requires experienced movers.",
			PickupLocation:      "Capitol Hill, Seattle, WA",
			DeliveryLocation:    "Ballard, Seattle, WA",
			Dimensions:          "150x140x100 cm",
			SpecialRequirements: "Fragile, requires piano moving equipment",
		},
	},
	{
		owner: "mike@example.com", daysOut: 5, weight: 800,
		params: domain.CreateLoadParams{
			Title:               "Transport art installation pieces",
			Description:         "Moving large metal sculptures for gallery exhibition. 5 pieces total, some are quite heavy and awkward shapes.",
			PickupLocation:      "Artist Studio, Portland, OR",
			DeliveryLocation:    "Downtown Gallery, Seattle, WA",
			Dimensions:          "Various sizes, largest: 300x200x150 cm",
			SpecialRequirements: "Fragile artwork, needs padding and careful handling",
		},
	},
	{
		owner: "sarah@example.com", daysOut: 7, weight: 1200,
		params: domain.CreateLoadParams{
			Title:               "Deliver restaurant equipment",
			Description:         "Commercial kitchen equipment delivery. Includes industrial oven, prep tables and a refrigeration unit.",
			PickupLocation:      "Restaurant Supply Store, Tacoma, WA",
			DeliveryLocation:    "New Restaurant Location, Bellevue, WA",
			Dimensions:          "Multiple items, largest: 180x90x200 cm",
			SpecialRequirements: "Heavy items, loading dock access required",
		},
	},
	{
		owner: "mike@example.com", daysOut: 10, weight: 600,
		params: domain.CreateLoadParams{
			Title:               "Move furniture for apartment relocation",
			Description:         "Complete apartment move: sofa, dining set, bedroom furniture and boxes. Moving from 2BR to 1BR so some items need storage.",
			PickupLocation:      "Apartment 3B, Portland, OR",
			DeliveryLocation:    "New Apartment, Vancouver, WA",
			Dimensions:          "Full apartment worth, largest item: 220x100x90 cm",
			SpecialRequirements: "Some items fragile, need moving blankets",
		},
	},
	{
		owner: "sarah@example.com", claimedBy: "tom@example.com", daysOut: 1, weight: 220,
		params: domain.CreateLoadParams{
			Title:               "Vintage motorcycle transport",
			Description:         "1975 Honda CB750 needs transport from seller to my garage. Bike is not running, will need to be loaded and unloaded carefully.",
			PickupLocation:      "Garage Sale, Everett, WA",
			DeliveryLocation:    "My Garage, Renton, WA",
			Dimensions:          "210x80x120 cm",
			SpecialRequirements: "Non-running motorcycle, needs ramp loading",
		},
		messages: []demoMessage{
			{"tom@example.com", "Hi! I've claimed your motorcycle transport request. I have experience with vintage bikes and a proper ramp. When would be best for pickup?"},
			{"sarah@example.com", "Great! Tomorrow afternoon around 2 PM would work well. The bike is in the garage at the address listed. Thanks for being careful with it!"},
			{"tom@example.com", "Perfect! I'll be there at 2 PM tomorrow with my truck and proper equipment. See you then!"},
		},
	},
}

// SeedResult counts what Seed created.
type SeedResult struct {
	Users    int
	Loads    int
	Messages int
}

// Seeder creates demo accounts, loads and messages through the services so
// that every business rule applies to the demo data too.
type Seeder struct {
	Queries  *repository.Queries
	Users    UserService
	Loads    LoadService
	Messages MessageService
	Logger   *slog.Logger
	Now      func() time.Time
}

// Seed creates the demo data. Accounts that already exist are left alone,
// and loads are only created when their owner was created in this run, so
// running it twice does not duplicate anything.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	users := make(map[string]*domain.User, len(demoUsers))
	created := make(map[string]bool, len(demoUsers))
	for _, params := range demoUsers {
		existing, err := s.Queries.GetUserByEmail(ctx, params.Email)
		switch {
		case err == nil:
			users[params.Email] = repoUserToDomain(existing)
			s.Logger.Info("demo user exists, skipping", "email", params.Email)
			continue
		case !errors.Is(err, sql.ErrNoRows):
			return result, fmt.Errorf("look up %s: %w", params.Email, err)
		}

		res, err := s.Users.Register(ctx, params)
		if err != nil {
			return result, fmt.Errorf("register %s: %w", params.Email, err)
		}
		users[params.Email] = res.User
		created[params.Email] = true
		result.Users++
	}

	for _, dl := range demoLoads {
		if !created[dl.owner] {
			continue
		}
		owner := users[dl.owner]

		params := dl.params
		pickup := now().AddDate(0, 0, dl.daysOut)
		weight := dl.weight
		params.PickupDate = &pickup
		params.Weight = &weight

		load, err := s.Loads.Create(ctx, owner, params)
		if err != nil {
			return result, fmt.Errorf("create load %q: %w", params.Title, err)
		}
		result.Loads++

		if dl.claimedBy == "" {
			continue
		}
		driver := users[dl.claimedBy]
		if _, err := s.Loads.Claim(ctx, driver, load.ID); err != nil {
			return result, fmt.Errorf("claim load %q: %w", params.Title, err)
		}

		for _, m := range dl.messages {
			_, err := s.Messages.Send(ctx, users[m.from], domain.SendMessageParams{LoadID: load.ID, Body: m.body})
			if err != nil {
				return result, fmt.Errorf("send message on %q: %w", params.Title, err)
			}
			result.Messages++
		}
	}

	s.Logger.Info("demo data created", "users", result.Users, "loads", result.Loads, "messages", result.Messages)
	return result, nil
}
