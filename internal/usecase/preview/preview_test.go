package preview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fraud-viewer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	args := m.Called(ctx, ref)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func testLogger() *zlog.Zerolog {
	zlog.Init()
	return &zlog.Logger
}

func csvWithRows(n int) string {
	var b strings.Builder
	b.WriteString("Provider,PotentialFraud\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "PRV%d,No\n", i)
	}
	return b.String()
}

func TestBuildCapsBodyRows(t *testing.T) {
	table := Build(csvWithRows(40), domain.PolicyKeywords)
	require.NotNil(t, table)

	assert.Len(t, table.Header, 2)
	require.Len(t, table.Rows, domain.PreviewCap)
	assert.Equal(t, "PRV1", table.Rows[0][0].Text)
	assert.Equal(t, "PRV15", table.Rows[14][0].Text)
}

func TestBuildExactlyCapRows(t *testing.T) {
	table := Build(csvWithRows(15), domain.PolicyKeywords)
	require.NotNil(t, table)
	assert.Len(t, table.Rows, 15)

	table = Build(csvWithRows(16), domain.PolicyKeywords)
	require.NotNil(t, table)
	assert.Len(t, table.Rows, 15)
}

func TestBuildHeaderOnly(t *testing.T) {
	table := Build("Provider,PotentialFraud\n", domain.PolicyKeywords)
	require.NotNil(t, table)

	assert.Equal(t, []domain.Cell{{Text: "Provider"}, {Text: "PotentialFraud"}}, table.Header)
	assert.Empty(t, table.Rows)
}

func TestBuildEmptyContent(t *testing.T) {
	assert.Nil(t, Build("", domain.PolicyKeywords))
	assert.Nil(t, Build(" \n\r\n\t", domain.PolicyKeywords))
}

func TestBuildMarksPositiveCells(t *testing.T) {
	text := "Provider,PotentialFraud,Label\nPRV1,Yes,Fraudulent\nPRV2,No,fraudulent \nPRV3,yes,Non-Fraudulent"

	table := Build(text, domain.PolicyKeywords)
	require.NotNil(t, table)
	require.Len(t, table.Rows, 3)

	assert.False(t, table.Rows[0][0].Positive)
	assert.True(t, table.Rows[0][1].Positive)
	assert.True(t, table.Rows[0][2].Positive)
	assert.False(t, table.Rows[1][1].Positive)
	assert.True(t, table.Rows[1][2].Positive)
	assert.Equal(t, "fraudulent ", table.Rows[1][2].Text)
	assert.True(t, table.Rows[2][1].Positive)
	assert.False(t, table.Rows[2][2].Positive)

	exact := Build(text, domain.PolicyExact)
	require.NotNil(t, exact)
	assert.True(t, exact.Rows[0][1].Positive)
	assert.False(t, exact.Rows[0][2].Positive)
	assert.False(t, exact.Rows[2][1].Positive)
}

func TestBuildHeaderNeverMarked(t *testing.T) {
	table := Build("Yes,Fraudulent\nNo,No", domain.PolicyKeywords)
	require.NotNil(t, table)
	for _, cell := range table.Header {
		assert.False(t, cell.Positive)
	}
}

func TestBuildKeepsRaggedRowsAndLiteralText(t *testing.T) {
	text := "a,b,c\n1\n1,2,3,4\n<b>x</b>,\"q,r\""

	table := Build(text, domain.PolicyKeywords)
	require.NotNil(t, table)
	require.Len(t, table.Rows, 3)

	assert.Len(t, table.Rows[0], 1)
	assert.Len(t, table.Rows[1], 4)
	assert.Equal(t, "<b>x</b>", table.Rows[2][0].Text)
	assert.Equal(t, []domain.Cell{{Text: "<b>x</b>"}, {Text: "\"q"}, {Text: "r\""}}, table.Rows[2])
}

func TestBuildToleratesCRLF(t *testing.T) {
	table := Build("Provider,PotentialFraud\r\nPRV1,Yes\r\n", domain.PolicyExact)
	require.NotNil(t, table)

	assert.Equal(t, "PotentialFraud", table.Header[1].Text)
	assert.Equal(t, "Yes", table.Rows[0][1].Text)
	assert.True(t, table.Rows[0][1].Positive)
}

func TestLoadBuildsTable(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, "/static/results/predictions.csv").
		Return([]byte(csvWithRows(3)), nil)

	p := NewPreviewer(fetcher, domain.PolicyKeywords, testLogger())
	result := p.Load(context.Background(), "/static/results/predictions.csv")

	require.NotNil(t, result.Table)
	assert.Len(t, result.Table.Rows, 3)
	assert.Empty(t, result.Message)
	assert.Equal(t, csvWithRows(3), string(result.Raw))
	fetcher.AssertExpectations(t)
}

func TestLoadFailureDegradesToMessage(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return(nil, errors.New("connection reset"))

	p := NewPreviewer(fetcher, domain.PolicyKeywords, testLogger())
	result := p.Load(context.Background(), "/static/results/predictions.csv")

	assert.Nil(t, result.Table)
	assert.Equal(t, domain.MessagePreviewFallback, result.Message)
}

func TestLoadEmptyResourceIsSilent(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything, mock.Anything).Return([]byte("\n\n"), nil)

	p := NewPreviewer(fetcher, domain.PolicyKeywords, testLogger())
	result := p.Load(context.Background(), "/p.csv")

	assert.Nil(t, result.Table)
	assert.Empty(t, result.Message)
}

func TestNewPreviewerDefaultsInvalidPolicy(t *testing.T) {
	p := NewPreviewer(new(MockFetcher), domain.MatchPolicy(""), testLogger())
	assert.Equal(t, domain.PolicyKeywords, p.policy)
}
