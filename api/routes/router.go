package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quartermasterhq/quartermaster-backend/api/controllers"
	"github.com/quartermasterhq/quartermaster-backend/api/middleware"
	"github.com/quartermasterhq/quartermaster-backend/internal/exports"
	"github.com/quartermasterhq/quartermaster-backend/internal/items"
	"github.com/quartermasterhq/quartermaster-backend/internal/media"
	"github.com/quartermasterhq/quartermaster-backend/internal/roles"
	"github.com/quartermasterhq/quartermaster-backend/internal/teams"
	"github.com/quartermasterhq/quartermaster-backend/internal/users"
	"github.com/quartermasterhq/quartermaster-backend/pkg/config"
	"github.com/quartermasterhq/quartermaster-backend/pkg/logger"
	"github.com/quartermasterhq/quartermaster-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	storeP controllers.Pinger,
	userService users.Service,
	teamService teams.Service,
	itemService items.Service,
	roleService roles.Service,
	mediaService media.Service,
	exportService exports.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Get("/healthz", controllers.HealthLive(cfg))
	r.Get("/readyz", controllers.HealthReady(cfg, logg, readinessChecks(dbP, redisClient, storeP)))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		if redisClient != nil {
			r.Use(
				middleware.RateLimit(cfg.RateLimit, redisClient, logg),
				middleware.Idempotency(redisClient, cfg.RateLimit, logg),
			)
		}

		r.Get("/profile", controllers.ProfileGet(userService, logg))
		r.Put("/profile", controllers.ProfileUpdate(userService, logg))
		r.Get("/profile/image", controllers.ProfileImageGet(userService, logg))
		r.Post("/profile/image", controllers.ProfileImageUpload(userService, logg))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UsersList(userService, logg))
			r.Post("/{username}/role", controllers.UserAssignRole(userService, logg))
			r.Delete("/{id}", controllers.UserDelete(userService, logg))
		})

		r.Route("/teams", func(r chi.Router) {
			r.Post("/", controllers.TeamCreate(teamService, logg))
			r.Get("/", controllers.TeamList(teamService, logg))

			r.Route("/{teamID}", func(r chi.Router) {
				r.Get("/", controllers.TeamGet(teamService, logg))
				r.Patch("/", controllers.TeamUpdate(teamService, logg))
				r.Delete("/", controllers.TeamDelete(teamService, logg))
				r.Get("/summary", controllers.TeamSummary(itemService, logg))

				r.Route("/members", func(r chi.Router) {
					r.Get("/", controllers.TeamMembers(teamService, logg))
					r.Post("/{username}", controllers.TeamMemberAdd(teamService, logg))
					r.Delete("/{username}", controllers.TeamMemberRemove(teamService, logg))
				})

				r.Route("/items", func(r chi.Router) {
					r.Post("/", controllers.ItemCreate(itemService, logg))
					r.Get("/", controllers.ItemList(itemService, logg))
					r.Get("/tree", controllers.ItemTree(itemService, logg))

					r.Route("/{itemID}", func(r chi.Router) {
						r.Get("/", controllers.ItemGet(itemService, logg))
						r.Patch("/", controllers.ItemUpdate(itemService, logg))
						r.Delete("/", controllers.ItemDelete(itemService, logg))
						r.Post("/damage-reports", controllers.ItemDamageReportAdd(itemService, logg))
						r.Delete("/damage-reports/{index}", controllers.ItemDamageReportRemove(itemService, logg))
					})
				})

				r.Post("/items:hard-reset", controllers.ItemHardReset(itemService, logg))
				r.Post("/items:soft-reset", controllers.ItemSoftReset(itemService, logg))

				r.Post("/exports", controllers.ExportRun(exportService, logg))
			})
		})

		r.Get("/items/search", controllers.ItemSearch(itemService, logg))

		r.Route("/roles", func(r chi.Router) {
			r.Get("/", controllers.RolesList(roleService, logg))
			r.Post("/", controllers.RoleCreate(roleService, logg))
			r.Patch("/{id}", controllers.RoleUpdate(roleService, logg))
			r.Delete("/{id}", controllers.RoleDelete(roleService, logg))
		})

		r.Post("/uploads/images", controllers.UploadImage(mediaService, logg))
	})

	return r
}

// readinessChecks skips typed-nil dependencies so partially wired
// local stacks still report ready for what they do run.
func readinessChecks(dbP controllers.Pinger, redisClient *redis.Client, storeP controllers.Pinger) map[string]controllers.Pinger {
	checks := map[string]controllers.Pinger{
		"db":           dbP,
		"object_store": storeP,
	}
	if redisClient != nil {
		checks["redis"] = redisClient
	}
	return checks
}
