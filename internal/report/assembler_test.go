package report

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"hackscan/internal/classifier"
	"hackscan/internal/crawler"
	forensicerrors "hackscan/internal/errors"
	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHackTx = "0xabababababababababababababababababababababababababababababababab"
	testVictim = "0x2222222222222222222222222222222222222222"
	testHacker = "0x1111111111111111111111111111111111111111"
	testImpl   = "0x3333333333333333333333333333333333333333"
)

type fakeTxReader struct {
	tx  *models.Transaction
	err error
}

func (f *fakeTxReader) TransactionDetail(_ context.Context, _ string) (*models.Transaction, error) {
	return f.tx, f.err
}

type fakeTraceLister struct {
	steps []*models.TraceStep
}

func (f *fakeTraceLister) ListInternalCalls(_ context.Context, _ string) ([]*models.TraceStep, error) {
	return f.steps, nil
}

type fakeInspector struct {
	changes *models.StateChanges
	err     error
}

func (f *fakeInspector) StateChangesAround(_ context.Context, _ string, _ uint64) (*models.StateChanges, error) {
	return f.changes, f.err
}

type fakeTxLister struct {
	txs []*models.Transaction
	err error
}

func (f *fakeTxLister) ListTransactions(_ context.Context, _ string) ([]*models.Transaction, error) {
	return f.txs, f.err
}

type fakeCrawler struct {
	related []string
	err     error
}

func (f *fakeCrawler) Crawl(_ context.Context, _ string, report *models.Report) (*crawler.Frontier, error) {
	for _, addr := range f.related {
		report.AddRelatedContract(addr)
	}
	return crawler.NewFrontier(), f.err
}

type fakeSampler struct {
	sightings []*models.ImplementationSighting
	err       error
}

func (f *fakeSampler) Sample(_ context.Context, _ string) ([]*models.ImplementationSighting, error) {
	return f.sightings, f.err
}

// fakeCheckpoints 按保存顺序记录检查点标签
type fakeCheckpoints struct {
	labels []string
	errors map[string]string
}

func (f *fakeCheckpoints) Save(label string, _ any) error {
	f.labels = append(f.labels, label)
	return nil
}

func (f *fakeCheckpoints) SaveWithError(label string, _ any, cause error) error {
	f.labels = append(f.labels, label)
	if f.errors == nil {
		f.errors = make(map[string]string)
	}
	if cause != nil {
		f.errors[label] = cause.Error()
	}
	return nil
}

type noopChecker struct{}

func (noopChecker) IsContract(_ context.Context, _ string) (bool, error) {
	return false, nil
}

type fixture struct {
	chain       *fakeTxReader
	traces      *fakeTraceLister
	inspector   *fakeInspector
	explorer    *fakeTxLister
	crawler     *fakeCrawler
	sampler     *fakeSampler
	checkpoints *fakeCheckpoints
}

func newFixture() *fixture {
	return &fixture{
		chain: &fakeTxReader{tx: &models.Transaction{
			Hash:        testHackTx,
			BlockNumber: 100,
			From:        testHacker,
			To:          testVictim,
			Input:       "0x3659cfe6" + strings.Repeat("0", 24) + "3333333333333333333333333333333333333333",
		}},
		traces: &fakeTraceLister{},
		inspector: &fakeInspector{changes: models.NewStateChanges(
			&models.ContractState{BlockNumber: 99, Implementation: testImpl, Admin: testHacker},
			&models.ContractState{BlockNumber: 100, Implementation: "0x4444444444444444444444444444444444444444", Admin: testHacker},
		)},
		explorer:    &fakeTxLister{},
		crawler:     &fakeCrawler{},
		sampler:     &fakeSampler{},
		checkpoints: &fakeCheckpoints{},
	}
}

func (f *fixture) build() *Assembler {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	cls := classifier.NewClassifier(logger)
	analyzer := classifier.NewTraceAnalyzer(noopChecker{}, cls, logger)

	return NewAssembler(
		f.chain, f.traces, f.inspector, f.explorer,
		f.crawler, f.sampler, f.checkpoints,
		cls, analyzer, logger,
	)
}

func TestAssembleFullRun(t *testing.T) {
	f := newFixture()
	f.explorer.txs = []*models.Transaction{
		{Hash: "0xv1", BlockNumber: 50, Input: "0x8129fc1c"},
		{Hash: "0xv2", BlockNumber: 100, Input: "0x3659cfe6" + strings.Repeat("0", 64)},
	}
	f.crawler.related = []string{"0x5555555555555555555555555555555555555555"}
	f.sampler.sightings = []*models.ImplementationSighting{
		{BlockNumber: 0, Implementation: testImpl},
		{BlockNumber: 1000, Implementation: "0x4444444444444444444444444444444444444444"},
	}

	report, err := f.build().Assemble(context.Background(), testHackTx, testVictim, testHacker, testImpl)
	require.NoError(t, err)

	// 种子交易分类完成且状态变更被记录
	assert.Equal(t, "UPGRADE_TO", report.Analysis.HackDetails.Transaction.Method)
	assert.True(t, report.Analysis.HackDetails.Transaction.Suspicious)
	assert.True(t, report.Analysis.HackDetails.StateChanges.ImplementationChanged)

	// 受害合约历史中的升级调用进入可疑操作，initialize不进入
	require.Len(t, report.Analysis.SuspiciousActions, 1)
	assert.Equal(t, "0xv2", report.Analysis.SuspiciousActions[0].Hash)

	// 受害合约和爬取发现的合约都在关联合约中，输出前已排序
	assert.Contains(t, report.Analysis.RelatedContracts, report.Metadata.VictimContract)
	assert.Contains(t, report.Analysis.RelatedContracts, "0x5555555555555555555555555555555555555555")

	assert.Len(t, report.Analysis.ImplementationHistory, 2)

	// 四个阶段各保存一个检查点，顺序固定
	assert.Equal(t, []string{
		PhaseHackTransaction,
		PhaseVictimHistory,
		PhaseInteractionGraph,
		PhaseImplementationHistory,
	}, f.checkpoints.labels)
}

func TestAssembleRejectsInvalidInputs(t *testing.T) {
	f := newFixture()
	a := f.build()
	ctx := context.Background()

	_, err := a.Assemble(ctx, "bad-hash", testVictim, testHacker, "")
	assert.True(t, forensicerrors.IsValidation(err))

	_, err = a.Assemble(ctx, testHackTx, "bad-address", testHacker, "")
	assert.True(t, forensicerrors.IsValidation(err))

	_, err = a.Assemble(ctx, testHackTx, testVictim, models.ZeroAddress, "")
	assert.True(t, forensicerrors.IsValidation(err))

	// 输入校验失败时不产生检查点
	assert.Empty(t, f.checkpoints.labels)
}

func TestAssembleSavesErrorCheckpointOnPhaseFailure(t *testing.T) {
	f := newFixture()
	f.explorer.err = forensicerrors.NewTransportError("浏览器API请求失败", fmt.Errorf("超时"))

	report, err := f.build().Assemble(context.Background(), testHackTx, testVictim, testHacker, "")
	require.Error(t, err)
	assert.True(t, forensicerrors.IsTransport(err))

	// 阶段一正常保存，阶段二失败后保存错误检查点并停止
	assert.Equal(t, []string{
		PhaseHackTransaction,
		"error_" + PhaseVictimHistory,
	}, f.checkpoints.labels)
	assert.Contains(t, f.checkpoints.errors["error_"+PhaseVictimHistory], "浏览器API请求失败")

	// 已完成阶段的结果保留在报告中
	require.NotNil(t, report)
	assert.NotNil(t, report.Analysis.HackDetails.Transaction)
}

func TestAssembleStorageReadErrorIsFatal(t *testing.T) {
	f := newFixture()
	f.inspector.changes = nil
	f.inspector.err = forensicerrors.NewStorageReadError("读取存储槽失败", fmt.Errorf("节点超时"))

	_, err := f.build().Assemble(context.Background(), testHackTx, testVictim, testHacker, "")
	require.Error(t, err)
	assert.True(t, forensicerrors.IsStorageRead(err))

	assert.Equal(t, []string{"error_" + PhaseHackTransaction}, f.checkpoints.labels)
}

func TestAssembleSamplerFailureKeepsEarlierPhases(t *testing.T) {
	f := newFixture()
	f.sampler.err = forensicerrors.NewTransportError("获取链头区块号失败", nil)

	report, err := f.build().Assemble(context.Background(), testHackTx, testVictim, testHacker, "")
	require.Error(t, err)

	assert.Equal(t, []string{
		PhaseHackTransaction,
		PhaseVictimHistory,
		PhaseInteractionGraph,
		"error_" + PhaseImplementationHistory,
	}, f.checkpoints.labels)
	assert.Empty(t, report.Analysis.ImplementationHistory)
}
