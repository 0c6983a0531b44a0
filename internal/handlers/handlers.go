package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wayfare/api/internal/cache"
	"wayfare/api/internal/config"
	"wayfare/api/internal/middleware"
	"wayfare/api/internal/models"
	"wayfare/api/internal/repository"
	"wayfare/api/internal/service"
	"wayfare/api/internal/storage"
)

type HandlerSet struct {
	log             zerolog.Logger
	cfg             *config.AppConfig
	authService     *service.AuthService
	workflowService *service.WorkflowService
	partnerService  *service.PartnerService
	catalogService  *service.CatalogService
	adminService    *service.AdminService
	mediaService    *service.MediaService
	db              *pgxpool.Pool
	redis           *redis.Client
	accounts        *repository.AccountRepository
}

func NewHandlerSet(log zerolog.Logger, db *pgxpool.Pool, redisClient *redis.Client, media *storage.MediaStore, cfg *config.AppConfig) HandlerSet {
	accountRepo := repository.NewAccountRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	experienceRepo := repository.NewExperienceRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	catalogCache := cache.NewCatalogCache(redisClient, cfg.Catalog.CacheTTL, log)

	auth := service.NewAuthService(accountRepo, catalogRepo, cfg, log)
	workflow := service.NewWorkflowService(experienceRepo, partnerRepo, log)
	partner := service.NewPartnerService(partnerRepo, log)
	catalog := service.NewCatalogService(catalogRepo, catalogCache, cfg, log)
	admin := service.NewAdminService(accountRepo, log)
	mediaSvc := service.NewMediaService(media, log)

	return HandlerSet{
		log:             log,
		cfg:             cfg,
		authService:     auth,
		workflowService: workflow,
		partnerService:  partner,
		catalogService:  catalog,
		adminService:    admin,
		mediaService:    mediaSvc,
		db:              db,
		redis:           redisClient,
		accounts:        accountRepo,
	}
}

// AuthService exposes the auth component for wiring outside the router.
func (h HandlerSet) AuthService() *service.AuthService { return h.authService }

// CatalogService exposes the catalog component for the scheduler.
func (h HandlerSet) CatalogService() *service.CatalogService { return h.catalogService }

// Accounts exposes the account repository for the scheduler.
func (h HandlerSet) Accounts() *repository.AccountRepository { return h.accounts }

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	v1 := router.Group("/v1")

	auth := v1.Group("/auth")
	auth.POST("/register", h.SignUp)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)

	authed := middleware.Auth(h.authService)

	session := v1.Group("/auth")
	session.Use(authed)
	session.POST("/logout", h.Logout)

	me := v1.Group("/me")
	me.Use(authed)
	me.GET("", h.Me)
	me.PATCH("/city", h.SetSelectedCity)

	catalog := v1.Group("/catalog")
	catalog.GET("/countries", h.ListCountries)
	catalog.GET("/cities", h.ListCities)
	catalog.GET("/cities/nearby", h.NearbyCities)
	catalog.GET("/categories", h.ListCategories)

	catalogAdmin := v1.Group("/catalog")
	catalogAdmin.Use(authed, middleware.RequireRoles(models.RolePlatformAdmin, models.RoleSuperAdmin))
	catalogAdmin.POST("/countries", h.CreateCountry)
	catalogAdmin.POST("/cities", h.CreateCity)
	catalogAdmin.POST("/categories", h.CreateCategory)

	experiences := v1.Group("/experiences")
	experiences.GET("", h.ListPublicExperiences)
	experiences.GET("/:id", h.GetPublicExperience)

	partner := v1.Group("/partner")
	partner.Use(authed, middleware.RequireRoles(models.RolePartner, models.RolePartnerManager))
	partner.POST("/profile", h.CreatePartnerProfile)
	partner.GET("/profile", h.GetPartnerProfile)
	partner.GET("/experiences", h.ListOwnExperiences)
	partner.POST("/experiences", h.CreateExperience)
	partner.PATCH("/experiences/:id", h.EditExperience)
	partner.POST("/experiences/:id/submit", h.SubmitExperience)

	media := v1.Group("/media")
	media.Use(authed, middleware.RequireRoles(
		models.RolePartner, models.RolePartnerManager,
		models.RolePlatformAdmin, models.RoleSuperAdmin,
	))
	media.POST("/upload", h.UploadMedia)

	admin := v1.Group("/admin")
	admin.Use(authed, middleware.RequireRoles(models.RolePlatformAdmin, models.RoleSuperAdmin))
	admin.GET("/accounts", h.AdminListAccounts)
	admin.PATCH("/accounts/:id/role", h.AdminUpdateRole)
	admin.POST("/accounts/:id/suspend", h.AdminSuspendAccount)
	admin.POST("/accounts/:id/unsuspend", h.AdminUnsuspendAccount)
	admin.GET("/experiences", h.AdminListExperiences)
	admin.GET("/experiences/pending", h.AdminListPending)
	admin.GET("/experiences/:id", h.AdminGetExperience)
	admin.POST("/experiences", h.CreateExperience)
	admin.PATCH("/experiences/:id", h.AdminUpdateExperience)
	admin.POST("/experiences/:id/approve", h.ApproveExperience)
	admin.POST("/experiences/:id/reject", h.RejectExperience)
	admin.POST("/experiences/:id/publish", h.PublishExperience)
	admin.POST("/experiences/:id/unpublish", h.UnpublishExperience)
	admin.DELETE("/experiences/:id", h.DeleteExperience)
}
