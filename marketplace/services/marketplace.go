package services

import (
	"log"
	"net/http"
	"os"

	"foodexchange/marketplace/config"
	"foodexchange/marketplace/storage"
	"foodexchange/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Marketplace struct {
	user           UserService
	sharedPost     SharedPostService
	bitDetails     BitDetailsService
	review         ReviewService
	story          ShareStoryService
	delivery       DeliveryService
	deliveryStatus DeliveryStatusService
	payment        PaymentService
	report         ReportService
	priceFeed      PriceFeedService

	db *gorm.DB
}

func NewMarketplace(db *gorm.DB, store storage.Storage, settings config.Settings) Marketplace {
	return Marketplace{
		user:           UserService{db: db},
		sharedPost:     SharedPostService{db: db, store: store},
		bitDetails:     BitDetailsService{db: db},
		review:         ReviewService{db: db},
		story:          ShareStoryService{db: db},
		delivery:       DeliveryService{db: db, settings: settings},
		deliveryStatus: DeliveryStatusService{db: db},
		payment:        PaymentService{db: db, settings: settings},
		report:         ReportService{db: db, settings: settings, matcher: SubstringMatcher{}},
		priceFeed:      PriceFeedService{db: db},
		db:             db,
	}
}

func (m *Marketplace) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger: log.New(os.Stderr, "", log.LstdFlags), NoColor: false,
	}))

	r.Mount("/user", m.user.Routes())
	r.Mount("/sharedpost", m.sharedPost.Routes())
	r.Mount("/bitdetails", m.bitDetails.Routes())
	r.Mount("/review", m.review.Routes())
	r.Mount("/sharestory", m.story.Routes())
	r.Mount("/delivery", m.delivery.Routes())
	r.Mount("/deliveryStatus", m.deliveryStatus.Routes())
	r.Mount("/payment", m.payment.Routes())
	r.Mount("/userreport", m.report.Routes())
	r.Mount("/pricefeed", m.priceFeed.Routes())

	// Legacy path used by older clients for price feed uploads.
	r.Mount("/csvfileHandeling", m.priceFeed.Routes())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteSuccess(w)
	})

	return r
}
