package main

import (
	"log"
	"os"

	"address-verify-server/routes"
	"address-verify-server/storage"
	"address-verify-server/utils"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	// Initialize services
	utils.InitializeLogger()
	storage.InitializeDB()
	storage.InitializeS3()
	storage.InitializeRedis()

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	// JWT Verifiers
	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	// Health check endpoint
	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	// Routes
	employee := app.Party("/api/employee")
	{
		employee.Post("/register", routes.Register)
		employee.Post("/login", routes.Login)
		employee.Post("/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)
		employee.Get("/me", accessTokenVerifierMiddleware, utils.EmployeeIDFromTokenMiddleware, routes.GetEmployee)
	}

	verification := app.Party("/api/verification", accessTokenVerifierMiddleware, utils.EmployeeIDFromTokenMiddleware)
	{
		verification.Post("/address", routes.SubmitAddress)
		verification.Post("/inspection", routes.SubmitInspection)
		verification.Post("/confirm-location", routes.ConfirmLocation)
		verification.Get("/me", routes.GetMyVerification)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/verifications", routes.AdminListVerifications)
		admin.Get("/verifications/{id:uint}", routes.AdminGetVerification)
		admin.Post("/verifications/{id:uint}/review", routes.AdminReviewVerification)
		admin.Post("/verifications/{id:uint}/reverify", routes.AdminRequestReverification)
	}

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
