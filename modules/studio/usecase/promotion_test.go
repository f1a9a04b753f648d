package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/ordforge/mint-engine/modules/studio/internal/entity"
	"github.com/ordforge/mint-engine/modules/studio/video"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedProcessingPromotion(studioDg *fakeStudioDg, taskId string, age time.Duration) *entity.PromotionJob {
	job := &entity.PromotionJob{
		Id:             uuid.New(),
		WalletAddress:  "bc1q0000000000000000000000000000000000wallet",
		OrdinalId:      1,
		Status:         entity.PromotionJobStatusProcessing,
		ExternalTaskId: taskId,
		CreditsSpent:   25,
		StartedAt:      lo.ToPtr(time.Now().Add(-age)),
	}
	studioDg.addPromotionJob(job)
	return job
}

func TestReconcilePromotionsSuccess(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	videoGateway.statuses["task-1"] = video.TaskStatus{
		SuccessFlag: 1,
		ResultUrls:  []string{"https://videos.test/task-1.mp4"},
	}

	summary := u.reconcilePromotions(context.Background())

	assert.Equal(t, PromotionSummary{Checked: 1, Completed: 1}, summary)
	stored := studioDg.promotionJob(job.Id)
	assert.Equal(t, entity.PromotionJobStatusCompleted, stored.Status)
	assert.Equal(t, "https://videos.test/task-1.mp4", stored.VideoURL)
}

func TestReconcilePromotionsContentPolicyRefund(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	videoGateway.statuses["task-1"] = video.TaskStatus{
		SuccessFlag:  2,
		ErrorMessage: "rejected: content policy violation",
	}

	summary := u.reconcilePromotions(context.Background())

	assert.Equal(t, PromotionSummary{Checked: 1, Failed: 1, Refunded: 1}, summary)
	stored := studioDg.promotionJob(job.Id)
	assert.Equal(t, entity.PromotionJobStatusFailed, stored.Status)
	// the job keeps the service's original error, not a refund note
	assert.Equal(t, "rejected: content policy violation", stored.ErrorMessage)

	refund := studioDg.refunds[job.Id]
	require.NotNil(t, refund)
	assert.Equal(t, entity.CreditTransactionTypeRefund, refund.Type)
	assert.Equal(t, int64(25), refund.Amount)
	assert.Equal(t, job.WalletAddress, refund.WalletAddress)
}

func TestReconcilePromotionsRefundExactlyOnce(t *testing.T) {
	u, studioDg, _, _, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	status := video.TaskStatus{SuccessFlag: 2, ErrorMessage: "content policy breach"}

	// two racing reconcilers apply the same failure signal
	_, refunded, err := u.applyPromotionStatus(context.Background(), studioDg.promotionJob(job.Id), status)
	require.NoError(t, err)
	assert.True(t, refunded)

	_, refunded, err = u.applyPromotionStatus(context.Background(), studioDg.promotionJob(job.Id), status)
	require.NoError(t, err)
	assert.False(t, refunded)

	assert.Len(t, studioDg.refunds, 1)
}

func TestReconcilePromotionsPlainFailureNoRefund(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	videoGateway.statuses["task-1"] = video.TaskStatus{
		SuccessFlag:  3,
		ErrorMessage: "render farm exploded",
	}

	summary := u.reconcilePromotions(context.Background())

	assert.Equal(t, PromotionSummary{Checked: 1, Failed: 1}, summary)
	assert.Empty(t, studioDg.refunds)
	assert.Equal(t, "render farm exploded", studioDg.promotionJob(job.Id).ErrorMessage)
}

func TestReconcilePromotionsPendingIsNoOp(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	videoGateway.statuses["task-1"] = video.TaskStatus{SuccessFlag: 0}

	summary := u.reconcilePromotions(context.Background())

	assert.Equal(t, PromotionSummary{Checked: 1}, summary)
	assert.Equal(t, entity.PromotionJobStatusProcessing, studioDg.promotionJob(job.Id).Status)
}

func TestReconcilePromotionsAgeWindow(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	// too young: the callback will likely arrive on its own
	seedProcessingPromotion(studioDg, "young", 5*time.Second)
	// too old: the task is considered lost
	seedProcessingPromotion(studioDg, "old", 2*time.Hour)

	summary := u.reconcilePromotions(context.Background())

	assert.Equal(t, PromotionSummary{}, summary)
	assert.Empty(t, videoGateway.polled)
}

func TestReconcilePromotionsPollErrorSkipsJob(t *testing.T) {
	u, studioDg, _, videoGateway, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", 5*time.Minute)
	videoGateway.errs["task-1"] = errors.New("service unavailable")

	summary := u.reconcilePromotions(context.Background())

	// counted as checked, nothing applied, next pass will retry
	assert.Equal(t, PromotionSummary{Checked: 1}, summary)
	assert.Equal(t, entity.PromotionJobStatusProcessing, studioDg.promotionJob(job.Id).Status)
}

func TestHandleVideoCallback(t *testing.T) {
	u, studioDg, _, _, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", time.Minute)

	err := u.HandleVideoCallback(context.Background(), "task-1", video.TaskStatus{
		SuccessFlag: 1,
		ResultUrls:  []string{"https://videos.test/task-1.mp4"},
	})
	require.NoError(t, err)

	stored := studioDg.promotionJob(job.Id)
	assert.Equal(t, entity.PromotionJobStatusCompleted, stored.Status)
	assert.Equal(t, "https://videos.test/task-1.mp4", stored.VideoURL)
}

func TestHandleVideoCallbackUnknownTask(t *testing.T) {
	u, _, _, _, _ := newTestStudioUsecase()

	// acknowledged so the service stops retrying
	err := u.HandleVideoCallback(context.Background(), "never-heard-of-it", video.TaskStatus{SuccessFlag: 1})
	assert.NoError(t, err)
}

func TestHandleVideoCallbackSettledJobIsNoOp(t *testing.T) {
	u, studioDg, _, _, _ := newTestStudioUsecase()
	job := seedProcessingPromotion(studioDg, "task-1", time.Minute)
	require.NoError(t, studioDg.CompletePromotionJob(context.Background(), job.Id, "https://videos.test/first.mp4"))

	err := u.HandleVideoCallback(context.Background(), "task-1", video.TaskStatus{
		SuccessFlag:  2,
		ErrorMessage: "late failure signal",
	})
	require.NoError(t, err)

	// the late signal must not overwrite the settled result
	stored := studioDg.promotionJob(job.Id)
	assert.Equal(t, entity.PromotionJobStatusCompleted, stored.Status)
	assert.Equal(t, "https://videos.test/first.mp4", stored.VideoURL)
}
