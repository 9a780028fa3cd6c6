// Package trainer fits the encoder and the classifier from a dataset and
// measures how well the pair generalizes on a held-out split.
package trainer

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unklab-dev/kampusbot-go/internal/dataset"
	apperrors "github.com/unklab-dev/kampusbot-go/internal/errors"
	"github.com/unklab-dev/kampusbot-go/internal/knn"
	"github.com/unklab-dev/kampusbot-go/internal/logger"
	"github.com/unklab-dev/kampusbot-go/internal/model"
	"github.com/unklab-dev/kampusbot-go/internal/textproc"
	"github.com/unklab-dev/kampusbot-go/internal/vectorizer"
)

const (
	defaultTestFraction = 0.2
	defaultSeed         = 42
)

// Options configures a training run. Zero values fall back to the
// defaults the chatbot ships with.
type Options struct {
	K                int
	VectorizerConfig vectorizer.Config
	NormOpts         textproc.Options
	TestFraction     float64
	Seed             int64
	Logger           *logger.Logger
}

// Evaluation summarizes held-out performance. Precision, recall and F1
// are support-weighted averages over the classes present in the test set.
type Evaluation struct {
	Accuracy    float64
	Precision   float64
	Recall      float64
	F1          float64
	TestSamples int

	// Confusion maps true tag -> predicted tag -> count.
	Confusion map[string]map[string]int
}

// Result is a completed training run.
type Result struct {
	Artifacts  *model.Artifacts
	Evaluation Evaluation
	Vectorizer *vectorizer.Vectorizer
	Classifier *knn.Classifier
}

// Train normalizes the dataset, fits the encoder on the full corpus,
// fits the classifier on a stratified train split and evaluates it on
// the remainder. The returned artifacts carry a fingerprint of the
// normalized corpus so a serving process can detect dataset drift.
func Train(ctx context.Context, data *dataset.Dataset, opts Options) (*Result, error) {
	if err := data.Validate(); err != nil {
		return nil, err
	}
	if opts.K <= 0 {
		opts.K = 1
	}
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = defaultTestFraction
	}
	if opts.Seed == 0 {
		opts.Seed = defaultSeed
	}
	log := opts.Logger
	if log == nil {
		log = logger.New("info")
	}
	log = log.WithModule("trainer")

	rawPatterns, rawTags := data.TrainingSamples()
	patterns, tags := normalizeCorpus(rawPatterns, rawTags, opts.NormOpts, log)
	if len(patterns) == 0 {
		return nil, apperrors.ErrEmptyTrainingSet
	}

	vec, err := vectorizer.New(opts.VectorizerConfig)
	if err != nil {
		return nil, err
	}
	if err := vec.Fit(patterns); err != nil {
		return nil, err
	}

	vectors, err := encodeAll(ctx, vec, patterns)
	if err != nil {
		return nil, err
	}

	trainIdx, testIdx := stratifiedSplit(tags, opts.TestFraction, opts.Seed)
	log.WithField("train", len(trainIdx)).
		WithField("test", len(testIdx)).
		WithField("vocabulary", vec.VocabularySize()).
		Info("corpus prepared")

	clf := knn.New(opts.K)
	trainVectors := make([]vectorizer.Vector, len(trainIdx))
	trainTags := make([]string, len(trainIdx))
	for i, idx := range trainIdx {
		trainVectors[i] = vectors[idx]
		trainTags[i] = tags[idx]
	}
	if err := clf.Fit(trainVectors, trainTags); err != nil {
		return nil, err
	}

	eval, err := evaluate(ctx, clf, vectors, tags, testIdx)
	if err != nil {
		return nil, err
	}
	log.WithField("accuracy", eval.Accuracy).
		WithField("f1", eval.F1).
		Info("evaluation complete")

	fingerprint, err := model.Fingerprint(opts.VectorizerConfig, patterns, tags)
	if err != nil {
		return nil, err
	}
	vecState, err := vec.Export()
	if err != nil {
		return nil, err
	}
	clfState, err := clf.Export()
	if err != nil {
		return nil, err
	}

	return &Result{
		Artifacts: &model.Artifacts{
			Manifest: model.Manifest{
				Fingerprint: fingerprint,
				CreatedAt:   time.Now().UTC(),
				Samples:     len(patterns),
				Classes:     len(clf.Classes()),
				Vocabulary:  vec.VocabularySize(),
			},
			Vectorizer: vecState,
			Classifier: clfState,
		},
		Evaluation: eval,
		Vectorizer: vec,
		Classifier: clf,
	}, nil
}

// CorpusFingerprint computes the fingerprint a serving process should
// expect for the given dataset and encoder configuration.
func CorpusFingerprint(data *dataset.Dataset, cfg vectorizer.Config, normOpts textproc.Options) (string, error) {
	rawPatterns, rawTags := data.TrainingSamples()
	patterns, tags := normalizeCorpus(rawPatterns, rawTags, normOpts, nil)
	return model.Fingerprint(cfg, patterns, tags)
}

func normalizeCorpus(rawPatterns, rawTags []string, opts textproc.Options, log *logger.Logger) ([]string, []string) {
	norm := textproc.NewNormalizer(nil)
	patterns := make([]string, 0, len(rawPatterns))
	tags := make([]string, 0, len(rawTags))
	for i, raw := range rawPatterns {
		clean := norm.Normalize(raw, opts).Clean
		if clean == "" {
			if log != nil {
				log.WithField("pattern", raw).Warn("pattern normalized to empty string, skipping")
			}
			continue
		}
		patterns = append(patterns, clean)
		tags = append(tags, rawTags[i])
	}
	return patterns, tags
}

func encodeAll(ctx context.Context, vec *vectorizer.Vectorizer, texts []string) ([]vectorizer.Vector, error) {
	vectors := make([]vectorizer.Vector, len(texts))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, text := range texts {
		g.Go(func() error {
			v, err := vec.Encode(text)
			if err != nil {
				return fmt.Errorf("encode sample %d: %w", i, err)
			}
			vectors[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// stratifiedSplit holds out roughly testFraction of each class. Classes
// with a single sample stay entirely in the train split.
func stratifiedSplit(tags []string, testFraction float64, seed int64) (trainIdx, testIdx []int) {
	byTag := make(map[string][]int)
	for i, tag := range tags {
		byTag[tag] = append(byTag[tag], i)
	}
	sortedTags := make([]string, 0, len(byTag))
	for tag := range byTag {
		sortedTags = append(sortedTags, tag)
	}
	sort.Strings(sortedTags)

	rng := rand.New(rand.NewSource(seed))
	for _, tag := range sortedTags {
		indices := byTag[tag]
		rng.Shuffle(len(indices), func(a, b int) {
			indices[a], indices[b] = indices[b], indices[a]
		})
		nTest := int(float64(len(indices)) * testFraction)
		if nTest >= len(indices) {
			nTest = len(indices) - 1
		}
		testIdx = append(testIdx, indices[:nTest]...)
		trainIdx = append(trainIdx, indices[nTest:]...)
	}
	sort.Ints(trainIdx)
	sort.Ints(testIdx)
	return trainIdx, testIdx
}

func evaluate(ctx context.Context, clf *knn.Classifier, vectors []vectorizer.Vector, tags []string, testIdx []int) (Evaluation, error) {
	eval := Evaluation{
		TestSamples: len(testIdx),
		Confusion:   make(map[string]map[string]int),
	}
	if len(testIdx) == 0 {
		return eval, nil
	}

	predicted := make([]string, len(testIdx))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, idx := range testIdx {
		g.Go(func() error {
			pred, err := clf.Predict(vectors[idx])
			if err != nil {
				return fmt.Errorf("predict sample %d: %w", idx, err)
			}
			predicted[i] = pred.Tag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Evaluation{}, err
	}

	var correct int
	truePositive := make(map[string]int)
	falsePositive := make(map[string]int)
	support := make(map[string]int)
	for i, idx := range testIdx {
		truth, pred := tags[idx], predicted[i]
		if eval.Confusion[truth] == nil {
			eval.Confusion[truth] = make(map[string]int)
		}
		eval.Confusion[truth][pred]++
		support[truth]++
		if truth == pred {
			correct++
			truePositive[truth]++
		} else {
			falsePositive[pred]++
		}
	}
	eval.Accuracy = float64(correct) / float64(len(testIdx))

	// Support-weighted averages, classes absent from the test set excluded.
	var sumPrecision, sumRecall, sumF1 float64
	for tag, n := range support {
		tp := float64(truePositive[tag])
		fp := float64(falsePositive[tag])
		fn := float64(n) - tp

		var precision, recall, f1 float64
		if tp+fp > 0 {
			precision = tp / (tp + fp)
		}
		if tp+fn > 0 {
			recall = tp / (tp + fn)
		}
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		weight := float64(n) / float64(len(testIdx))
		sumPrecision += weight * precision
		sumRecall += weight * recall
		sumF1 += weight * f1
	}
	eval.Precision = sumPrecision
	eval.Recall = sumRecall
	eval.F1 = sumF1
	return eval, nil
}
