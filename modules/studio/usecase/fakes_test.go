package usecase

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/common/errs"
	"github.com/ordforge/mint-engine/modules/studio/datagateway"
	"github.com/ordforge/mint-engine/modules/studio/generation"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
	"github.com/ordforge/mint-engine/modules/studio/video"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// fakeStudioDg is an in-memory StudioDataGateway safe for the concurrent job
// fan-out.
type fakeStudioDg struct {
	mu sync.Mutex

	collections      map[int64]*entity.Collection
	traits           map[int64][]entity.Trait
	jobs             map[uuid.UUID]*entity.GenerationJob
	generationErrors []*entity.GenerationError
	ordinalArtifacts map[int64]string

	promotionJobs map[uuid.UUID]*entity.PromotionJob
	refunds       map[uuid.UUID]*entity.CreditTransaction

	// forceClaimLost makes ClaimGenerationJob report these jobs as taken.
	forceClaimLost map[uuid.UUID]struct{}
}

func newFakeStudioDg() *fakeStudioDg {
	return &fakeStudioDg{
		collections:      make(map[int64]*entity.Collection),
		traits:           make(map[int64][]entity.Trait),
		jobs:             make(map[uuid.UUID]*entity.GenerationJob),
		ordinalArtifacts: make(map[int64]string),
		promotionJobs:    make(map[uuid.UUID]*entity.PromotionJob),
		refunds:          make(map[uuid.UUID]*entity.CreditTransaction),
		forceClaimLost:   make(map[uuid.UUID]struct{}),
	}
}

func (f *fakeStudioDg) addCollection(collection *entity.Collection, traits ...entity.Trait) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[collection.Id] = collection
	f.traits[collection.Id] = traits
}

func (f *fakeStudioDg) addJob(job *entity.GenerationJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[job.Id] = lo.ToPtr(*job)
}

func (f *fakeStudioDg) addPromotionJob(job *entity.PromotionJob) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.promotionJobs[job.Id] = lo.ToPtr(*job)
}

func (f *fakeStudioDg) job(id uuid.UUID) *entity.GenerationJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.ToPtr(*f.jobs[id])
}

func (f *fakeStudioDg) promotionJob(id uuid.UUID) *entity.PromotionJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	return lo.ToPtr(*f.promotionJobs[id])
}

func (f *fakeStudioDg) errorStages(jobId uuid.UUID) []entity.GenerationErrorStage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stages []entity.GenerationErrorStage
	for _, generationError := range f.generationErrors {
		if generationError.JobId == jobId {
			stages = append(stages, generationError.Stage)
		}
	}
	return stages
}

func (f *fakeStudioDg) GetStuckGenerationJobs(_ context.Context, startedBefore time.Time, limit int32) ([]*entity.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var stuck []*entity.GenerationJob
	for _, job := range f.jobs {
		if job.Status == entity.GenerationJobStatusProcessing &&
			job.StartedAt != nil && job.StartedAt.Before(startedBefore) &&
			len(stuck) < int(limit) {
			stuck = append(stuck, lo.ToPtr(*job))
		}
	}
	return stuck, nil
}

func (f *fakeStudioDg) GetCollectionIdsWithPendingJobs(_ context.Context, limit int32) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	oldest := make(map[int64]time.Time)
	for _, job := range f.jobs {
		if job.Status != entity.GenerationJobStatusPending {
			continue
		}
		if current, ok := oldest[job.CollectionId]; !ok || job.CreatedAt.Before(current) {
			oldest[job.CollectionId] = job.CreatedAt
		}
	}
	ids := lo.Keys(oldest)
	sort.Slice(ids, func(i, j int) bool { return oldest[ids[i]].Before(oldest[ids[j]]) })
	if len(ids) > int(limit) {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeStudioDg) GetPendingGenerationJobs(_ context.Context, collectionId int64, limit int32) ([]*entity.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []*entity.GenerationJob
	for _, job := range f.jobs {
		if job.CollectionId == collectionId && job.Status == entity.GenerationJobStatusPending {
			pending = append(pending, lo.ToPtr(*job))
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].CreatedAt.Before(pending[j].CreatedAt) })
	if len(pending) > int(limit) {
		pending = pending[:limit]
	}
	return pending, nil
}

func (f *fakeStudioDg) GetGenerationJob(_ context.Context, id uuid.UUID) (*entity.GenerationJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "job %s", id)
	}
	return lo.ToPtr(*job), nil
}

func (f *fakeStudioDg) GetCollection(_ context.Context, id int64) (*entity.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	collection, ok := f.collections[id]
	if !ok {
		return nil, errors.Wrapf(errs.NotFound, "collection %d", id)
	}
	return collection, nil
}

func (f *fakeStudioDg) GetTraitsByCollectionId(_ context.Context, collectionId int64) ([]entity.Trait, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.traits[collectionId], nil
}

func (f *fakeStudioDg) GetPollablePromotionJobs(_ context.Context, now time.Time, minAge, maxAge time.Duration, limit int32) ([]*entity.PromotionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pollable []*entity.PromotionJob
	for _, job := range f.promotionJobs {
		if job.Status != entity.PromotionJobStatusProcessing || job.ExternalTaskId == "" || job.StartedAt == nil {
			continue
		}
		age := now.Sub(*job.StartedAt)
		if age < minAge || age > maxAge {
			continue
		}
		if len(pollable) < int(limit) {
			pollable = append(pollable, lo.ToPtr(*job))
		}
	}
	return pollable, nil
}

func (f *fakeStudioDg) GetPromotionJobByTaskId(_ context.Context, taskId string) (*entity.PromotionJob, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, job := range f.promotionJobs {
		if job.ExternalTaskId == taskId {
			return lo.ToPtr(*job), nil
		}
	}
	return nil, errors.Wrapf(errs.NotFound, "task %s", taskId)
}

func (f *fakeStudioDg) ClaimGenerationJob(_ context.Context, id uuid.UUID, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, lost := f.forceClaimLost[id]; lost {
		return false, nil
	}
	job, ok := f.jobs[id]
	if !ok || job.Status != entity.GenerationJobStatusPending {
		return false, nil
	}
	job.Status = entity.GenerationJobStatusProcessing
	job.StartedAt = lo.ToPtr(now)
	return true, nil
}

func (f *fakeStudioDg) CompleteGenerationJob(_ context.Context, job *entity.GenerationJob) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := lo.ToPtr(*job)
	stored.Status = entity.GenerationJobStatusCompleted
	f.jobs[job.Id] = stored
	return nil
}

func (f *fakeStudioDg) FailGenerationJob(_ context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[id]
	if !ok {
		return errors.Wrapf(errs.NotFound, "job %s", id)
	}
	job.Status = entity.GenerationJobStatusFailed
	job.ErrorMessage = errorMessage
	return nil
}

func (f *fakeStudioDg) CreateGenerationError(_ context.Context, generationError *entity.GenerationError) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generationErrors = append(f.generationErrors, generationError)
	return nil
}

func (f *fakeStudioDg) SetOrdinalArtifact(_ context.Context, ordinalId int64, artifactKey string, _ string, _ int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ordinalArtifacts[ordinalId] = artifactKey
	return nil
}

func (f *fakeStudioDg) CompletePromotionJob(_ context.Context, id uuid.UUID, videoURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.promotionJobs[id]
	if !ok {
		return errors.Wrapf(errs.NotFound, "promotion job %s", id)
	}
	job.Status = entity.PromotionJobStatusCompleted
	job.VideoURL = videoURL
	return nil
}

func (f *fakeStudioDg) FailPromotionJob(_ context.Context, id uuid.UUID, errorMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.promotionJobs[id]
	if !ok {
		return errors.Wrapf(errs.NotFound, "promotion job %s", id)
	}
	job.Status = entity.PromotionJobStatusFailed
	job.ErrorMessage = errorMessage
	return nil
}

func (f *fakeStudioDg) CreatePromotionRefund(_ context.Context, jobId uuid.UUID, walletAddress string, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.refunds[jobId]; ok {
		return false, nil
	}
	f.refunds[jobId] = &entity.CreditTransaction{
		WalletAddress:  walletAddress,
		PromotionJobId: jobId,
		Type:           entity.CreditTransactionTypeRefund,
		Amount:         amount,
	}
	return true, nil
}

func (f *fakeStudioDg) BeginStudioTx(context.Context) (datagateway.StudioDataGatewayWithTx, error) {
	return &fakeStudioDgTx{fakeStudioDg: f}, nil
}

type fakeStudioDgTx struct {
	*fakeStudioDg
}

func (f *fakeStudioDgTx) Commit(context.Context) error   { return nil }
func (f *fakeStudioDgTx) Rollback(context.Context) error { return nil }

// fakeGenerator scripts the image-generation service.
type fakeGenerator struct {
	mu          sync.Mutex
	generateErr error
	result      *generation.Result
	fetched     map[string][]byte
	prompts     []string

	// generateHook runs on every GenerateImage call, outside the lock, so
	// tests can observe in-flight concurrency.
	generateHook func()
}

func (f *fakeGenerator) GenerateImage(_ context.Context, prompt, _ string) (*generation.Result, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	generateErr, result, hook := f.generateErr, f.result, f.generateHook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if generateErr != nil {
		return nil, generateErr
	}
	return result, nil
}

func (f *fakeGenerator) FetchImage(_ context.Context, imageURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.fetched[imageURL]
	if !ok {
		return nil, errors.Errorf("image fetch returned status %d", 404)
	}
	return data, nil
}

// fakeVideo scripts the video service's task status endpoint.
type fakeVideo struct {
	statuses map[string]video.TaskStatus
	errs     map[string]error
	polled   []string
}

func newFakeVideo() *fakeVideo {
	return &fakeVideo{
		statuses: make(map[string]video.TaskStatus),
		errs:     make(map[string]error),
	}
}

func (f *fakeVideo) RecordInfo(_ context.Context, taskId string) (video.TaskStatus, error) {
	f.polled = append(f.polled, taskId)
	if err, ok := f.errs[taskId]; ok {
		return video.TaskStatus{}, err
	}
	return f.statuses[taskId], nil
}

// fakeArtifacts collects uploads in memory.
type fakeArtifacts struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeArtifacts) Put(_ context.Context, key string, _ string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return "https://cdn.test/" + key, nil
}

func newTestStudioUsecase() (*Usecase, *fakeStudioDg, *fakeGenerator, *fakeVideo, *fakeArtifacts) {
	studioDg := newFakeStudioDg()
	generator := &fakeGenerator{fetched: make(map[string][]byte)}
	videoGateway := newFakeVideo()
	artifacts := &fakeArtifacts{objects: make(map[string][]byte)}
	u := New(studioDg, generator, videoGateway, artifacts, Config{})
	u.newRand = func() *rand.Rand { return rand.New(rand.NewSource(42)) }
	return u, studioDg, generator, videoGateway, artifacts
}

// testPNG renders a small valid PNG the pipeline can decode and compress.
func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 0x40, A: 0xff})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
