// Package seed populates the registries with demo data for local runs.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/kfish-market/auction-service/internal/auction"
	"github.com/kfish-market/auction-service/internal/models"
	"github.com/kfish-market/auction-service/internal/registry"
)

var (
	species = []string{
		"mackerel", "hairtail", "squid", "flounder", "rockfish",
		"tuna", "salmon", "shrimp", "abalone", "sea cucumber",
	}
	locations = []string{"Busan", "Incheon", "Mokpo"}
)

// Users returns the demo participant roster.
func Users() []models.User {
	return []models.User{
		{ID: "1", Email: "fisherman1@kfish.com", Name: "Kim Eomin", UserType: "fisherman", CompanyName: "Busan Fisheries"},
		{ID: "2", Email: "buyer1@kfish.com", Name: "Lee Gumae", UserType: "buyer", CompanyName: "Seoul Sashimi House"},
		{ID: "3", Email: "logistics1@kfish.com", Name: "Park Mullyu", UserType: "logistics", CompanyName: "K-Logistics"},
		{ID: "4", Email: "admin@kfish.com", Name: "Administrator", UserType: "admin", CompanyName: "K-Fish"},
	}
}

// Demo registers ten products with matching auctions through the public
// operations: three are left live, the rest receive one bid from the demo
// buyer and are ended, so deliveries and their simulations start too.
func Demo(products *registry.ProductStore, directory *auction.Directory) {
	for i := 0; i < 10; i++ {
		p := &models.Product{
			ID:            uuid.New().String(),
			RFIDTag:       fmt.Sprintf("RFID-%d", 1000+i),
			BoxNumber:     fmt.Sprintf("BOX-%d", 1000+i),
			Species:       species[rand.Intn(len(species))],
			Weight:        float64(rand.Intn(50) + 10),
			Quantity:      rand.Intn(100) + 10,
			CatchDateTime: time.Now().Add(-time.Duration(rand.Intn(7*24)) * time.Hour),
			CatchLocation: models.GeoPoint{Lat: 35.1796 + rand.Float64(), Lng: 129.0756 + rand.Float64()},
			FishermanID:   "1",
			Photos:        []string{"/api/placeholder/400/300"},
			CreatedAt:     time.Now(),
			Status:        "registered",
			QualityStatus: models.QualityNotAssessed,
		}
		products.Add(p)

		startPrice := float64(rand.Intn(50000) + 10000)
		a := directory.Create(p.ID, startPrice, locations[rand.Intn(len(locations))])
		if _, err := directory.Start(a.ID); err != nil {
			log.Printf("[SEED] failed to start auction %s: %v", a.ID, err)
			continue
		}
		if i < 3 {
			continue
		}

		amount := startPrice + float64(rand.Intn(10000)+1000)
		if _, err := directory.PlaceBid(a.ID, "2", amount); err != nil {
			log.Printf("[SEED] failed to bid on auction %s: %v", a.ID, err)
		}
		if _, err := directory.End(a.ID); err != nil {
			log.Printf("[SEED] failed to end auction %s: %v", a.ID, err)
		}
	}
	log.Printf("[SEED] demo data loaded")
}
