package main

import (
	"log"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/routes"
	"github.com/samh164/ptappv3/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	vocab, err := config.LoadVocabulary(cfg.VocabPath)
	if err != nil {
		log.Fatalf("vocabulary: %v", err)
	}
	validator := utils.NewPlanValidator(vocab)

	r := routes.SetupRouter(cfg, db, validator)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
