package classifier

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"hackscan/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChecker 固定地址集合的合约判定
type fakeChecker struct {
	contracts map[string]bool
	failOn    string
}

func (f *fakeChecker) IsContract(_ context.Context, address string) (bool, error) {
	if f.failOn != "" && address == f.failOn {
		return false, fmt.Errorf("节点不可用")
	}
	return f.contracts[address], nil
}

func newTestAnalyzer(checker *fakeChecker) *TraceAnalyzer {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewTraceAnalyzer(checker, NewClassifier(logger), logger)
}

func TestAnalyzeClassifiesKinds(t *testing.T) {
	contractA := "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	contractB := "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
	eoa := "0xcccccccccccccccccccccccccccccccccccccccc"

	checker := &fakeChecker{contracts: map[string]bool{
		contractA: true,
		contractB: true,
	}}
	analyzer := newTestAnalyzer(checker)

	steps := []*models.TraceStep{
		{From: contractA, To: contractB},
		{From: contractA, To: eoa},
		{From: eoa, To: contractB},
		{From: eoa, To: eoa},
	}

	report := models.NewReport("0xtx", "0xvictim", "0xhacker", "")
	err := analyzer.Analyze(context.Background(), steps, report)
	require.NoError(t, err)

	assert.Equal(t, models.StepContractToContract, steps[0].Kind)
	assert.Equal(t, models.StepContractToEOA, steps[1].Kind)
	assert.Equal(t, models.StepEOAToContract, steps[2].Kind)
	assert.Equal(t, models.StepEOAToEOA, steps[3].Kind)

	// 涉及的合约进入关联合约集合，EOA不进入
	assert.True(t, report.HasRelatedContract(contractA))
	assert.True(t, report.HasRelatedContract(contractB))
	assert.False(t, report.HasRelatedContract(eoa))
	assert.Len(t, report.Analysis.RelatedContracts, 2)
}

func TestAnalyzeMarksSuspiciousCalls(t *testing.T) {
	checker := &fakeChecker{contracts: map[string]bool{}}
	analyzer := newTestAnalyzer(checker)

	steps := []*models.TraceStep{
		{
			TransactionHash: "0xhack",
			From:            "0x1111111111111111111111111111111111111111",
			To:              "0x2222222222222222222222222222222222222222",
			Input:           "0x3659cfe6" + strings.Repeat("0", 64),
		},
	}

	report := models.NewReport("0xtx", "0xvictim", "0xhacker", "")
	err := analyzer.Analyze(context.Background(), steps, report)
	require.NoError(t, err)

	assert.True(t, steps[0].Suspicious)
	assert.Contains(t, steps[0].Reasons, ReasonSuspiciousSignature)
}

func TestAnalyzePropagatesCheckerError(t *testing.T) {
	bad := "0xdddddddddddddddddddddddddddddddddddddddd"
	checker := &fakeChecker{contracts: map[string]bool{}, failOn: bad}
	analyzer := newTestAnalyzer(checker)

	steps := []*models.TraceStep{{From: bad, To: ""}}
	report := models.NewReport("0xtx", "0xvictim", "0xhacker", "")

	err := analyzer.Analyze(context.Background(), steps, report)
	assert.Error(t, err)
}

func TestAnalyzeEmptyToSkipsCheck(t *testing.T) {
	checker := &fakeChecker{contracts: map[string]bool{}}
	analyzer := newTestAnalyzer(checker)

	steps := []*models.TraceStep{{From: "0x1111111111111111111111111111111111111111", To: ""}}
	report := models.NewReport("0xtx", "0xvictim", "0xhacker", "")

	err := analyzer.Analyze(context.Background(), steps, report)
	assert.NoError(t, err)
	assert.Equal(t, models.StepEOAToEOA, steps[0].Kind)
}
