package app

import (
	"log"
	"time"
	"tush00nka/topovault/internal/config"
	"tush00nka/topovault/internal/handler"
	"tush00nka/topovault/internal/repository"
	"tush00nka/topovault/internal/service"
	"tush00nka/topovault/internal/ws"
)

func Run(cfg *config.Config) {
	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}

	rdb, err := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatal(err)
	}

	storage, err := service.NewS3Service(cfg)
	if err != nil {
		log.Fatal(err)
	}

	hub := ws.NewHub()

	docRepo := repository.NewDocumentRepository(db)
	cacheRepo := repository.NewDocumentCacheRepository(rdb)
	docService := service.NewDocumentService(docRepo, storage, cacheRepo, hub,
		time.Duration(cfg.PresignTTLSeconds)*time.Second)
	syncService := service.NewSyncService(docRepo, storage, cacheRepo, hub)
	docHandler := handler.NewDocumentHandler(docService, syncService)

	server := NewServer(docHandler, hub)
	server.Run(cfg.ServerPort)
}
