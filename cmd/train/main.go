// Package main provides the offline training entry point. It fits the
// encoder and classifier from the intent dataset, reports held-out
// metrics and writes the artifact set the server loads at boot.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/unklab-dev/kampusbot-go/internal/config"
	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/model"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/trainer"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

func main() {
	var (
		datasetPath  = flag.String("dataset", "", "dataset path (overrides "+config.EnvDatasetPath+")")
		modelDir     = flag.String("out", "", "artifact output directory (overrides "+config.EnvModelDir+")")
		testFraction = flag.Float64("test-fraction", 0.2, "held-out fraction per class")
		seed         = flag.Int64("seed", 42, "split shuffle seed")
		push         = flag.Bool("push", false, "upload artifacts to object storage after training")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *datasetPath != "" {
		cfg.DatasetPath = *datasetPath
	}
	if *modelDir != "" {
		cfg.ModelDir = *modelDir
	}

	log := logger.New(cfg.LogLevel).WithModule("train")
	ctx := context.Background()

	data, err := dataset.Load(cfg.DatasetPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load dataset")
	}
	log.WithField("path", cfg.DatasetPath).
		WithField("intents", len(data.Intents)).
		Info("Dataset loaded")

	result, err := trainer.Train(ctx, data, trainer.Options{
		K: cfg.KNeighbors,
		VectorizerConfig: vectorizer.Config{
			NGramMin:       cfg.NGramMin,
			NGramMax:       cfg.NGramMax,
			MaxFeatures:    cfg.MaxFeatures,
			MinDocFreq:     1,
			MaxDocFraction: cfg.MaxDocFraction,
		},
		NormOpts: textproc.Options{
			RemoveStopwords: cfg.RemoveStopwords,
			ApplyStemming:   cfg.ApplyStemming,
		},
		TestFraction: *testFraction,
		Seed:         *seed,
		Logger:       log,
	})
	if err != nil {
		log.WithError(err).Fatal("Training failed")
	}

	eval := result.Evaluation
	log.WithField("accuracy", eval.Accuracy).
		WithField("precision", eval.Precision).
		WithField("recall", eval.Recall).
		WithField("f1", eval.F1).
		WithField("test_samples", eval.TestSamples).
		Info("Evaluation")
	printConfusion(eval.Confusion)

	if err := result.Artifacts.Save(cfg.ModelDir); err != nil {
		log.WithError(err).Fatal("Failed to save artifacts")
	}
	log.WithField("dir", cfg.ModelDir).
		WithField("fingerprint", result.Artifacts.Manifest.Fingerprint[:12]).
		Info("Artifacts saved")

	if *push {
		if !cfg.S3.Enabled {
			log.Fatal("-push requires the object storage feature (" + config.EnvS3Enabled + "=true)")
		}
		store, err := model.NewObjectStore(ctx, model.ObjectStoreConfig{
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			BucketName:      cfg.S3.BucketName,
		}, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to create object store client")
		}
		if err := store.Push(ctx, cfg.ModelDir, cfg.S3.ModelKey); err != nil {
			log.WithError(err).Fatal("Failed to push artifacts")
		}
		log.WithField("key", cfg.S3.ModelKey).Info("Artifacts pushed to object storage")
	}
}

// printConfusion writes the confusion matrix to stdout, true tags as
// rows and predicted tags as columns.
func printConfusion(confusion map[string]map[string]int) {
	if len(confusion) == 0 {
		return
	}
	tagSet := make(map[string]struct{})
	for truth, row := range confusion {
		tagSet[truth] = struct{}{}
		for pred := range row {
			tagSet[pred] = struct{}{}
		}
	}
	tags := make([]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Printf("%-20s", "true\\predicted")
	for _, tag := range tags {
		fmt.Printf("%12s", tag)
	}
	fmt.Println()
	for _, truth := range tags {
		fmt.Printf("%-20s", truth)
		for _, pred := range tags {
			fmt.Printf("%12d", confusion[truth][pred])
		}
		fmt.Println()
	}
}
