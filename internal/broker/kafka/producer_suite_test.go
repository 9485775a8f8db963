package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/stefanobandi/manovre-portuali-Trieste/internal/broker/messages"
	"github.com/stefanobandi/manovre-portuali-Trieste/internal/models"
)

const refreshedTopic = "movements.refreshed"

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

type ProducerSuite struct {
	suite.Suite
	wm *writerMock
	p  *Producer
}

func (s *ProducerSuite) SetupTest() {
	s.wm = &writerMock{}
	s.p = newProducerWithWriter(s.wm)
}

func (s *ProducerSuite) snapshotPayload() (string, []byte) {
	eta := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	snap := models.Snapshot{
		RefreshID:   "r-42",
		RefreshedAt: eta.Add(-time.Hour),
		Columns:     models.CanonicalColumns(),
		Movements:   []*models.Movement{{Terminal: "TMT", Vessel: "MSC AURORA", ETA: &eta}},
		Sources:     []models.SourceStatus{{Source: "tmt", Label: "TMT", Available: true, Rows: 1}},
	}
	b, err := json.Marshal(messages.FromSnapshot(snap))
	s.Require().NoError(err)
	return snap.RefreshID, b
}

func (s *ProducerSuite) TestPublish_SnapshotKeyedByRefreshID() {
	key, payload := s.snapshotPayload()
	s.wm.
		On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
			if len(msgs) != 1 || msgs[0].Topic != refreshedTopic || string(msgs[0].Key) != key {
				return false
			}
			var got messages.DatasetRefreshed
			if err := json.Unmarshal(msgs[0].Value, &got); err != nil {
				return false
			}
			return got.RefreshID == key && len(got.Movements) == 1 && got.Movements[0].Vessel == "MSC AURORA"
		})).
		Return(nil).
		Once()

	s.Require().NoError(s.p.Publish(context.Background(), refreshedTopic, []byte(key), payload))
	s.wm.AssertExpectations(s.T())
}

func (s *ProducerSuite) TestPublish_ErrorWrapped() {
	s.wm.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()

	key, payload := s.snapshotPayload()
	err := s.p.Publish(context.Background(), refreshedTopic, []byte(key), payload)
	s.Require().Error(err)
	s.Require().Contains(err.Error(), "kafka publish")
	s.Require().Contains(err.Error(), "leader not available")
	s.wm.AssertExpectations(s.T())
}

// writerMock не умеет Close: закрытие должно быть no-op.
func (s *ProducerSuite) TestClose_WriterWithoutCloser() {
	s.Require().NoError(s.p.Close())
}

func (s *ProducerSuite) TestNewProducer_Closes() {
	p := NewProducer([]string{"localhost:0"})
	s.Require().NotNil(p)
	s.Require().NoError(p.Close())
}

func TestProducerSuite(t *testing.T) {
	suite.Run(t, new(ProducerSuite))
}
