package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"localhub/internal/adapter/api"
	"localhub/internal/adapter/api/handler"
	apimiddleware "localhub/internal/adapter/api/middleware"
	"localhub/internal/adapter/api/router"
	"localhub/internal/adapter/repository"
	"localhub/internal/infrastructure/firebase"
	"localhub/internal/infrastructure/storage"
	"localhub/internal/infrastructure/websocket"
	"localhub/internal/usecase"
	"localhub/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	credentialsPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
		credentialsPath = ""
	} else if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	businessRepo := repository.NewFirestoreBusinessRepository(firestoreClient)
	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	fileMetadataRepo := repository.NewFirestoreFileMetadataRepository(firestoreClient)

	firebaseAuthClient := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseApiKey)

	var devTokens *firebase.DevTokenIssuer
	if cfg.Environment == "development" {
		devTokens = firebase.NewDevTokenIssuer(cfg.JWTSecret)
	}

	wsManager := websocket.NewManager()
	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, businessRepo, wsManager)
	wsManager.SetChatService(chatUseCase)

	handler.SetupFileHandler(storageClient, fileMetadataRepo, chatUseCase)
	handler.SetupDevTokenHandler(firebaseAuthClient, devTokens, userRepo)
	handler.SetupHealthHandler()

	e := echo.New()
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuthClient, devTokens, userRepo)
	adminMiddleware := apimiddleware.NewAdminMiddleware()

	chatHandler := handler.NewChatHandler(chatUseCase)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware)
	adminHandler := handler.NewAdminHandler(wsManager)

	router.Setup(e, chatHandler, wsHandler, adminHandler, authMiddleware, adminMiddleware)
	router.SetupDevRouter(e, cfg.Environment)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
