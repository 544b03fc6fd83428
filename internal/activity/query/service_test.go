package query

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"vowly/internal/activity"
	"vowly/internal/activity/mocks"
	"vowly/internal/activity/store/memory"
	dErrors "vowly/pkg/domain-errors"
)

var base = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

type ServiceSuite struct {
	suite.Suite
	ctx   context.Context
	store *memory.Store
	svc   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.New()
	s.svc = New(s.store, activity.NewEventSet())
}

func (s *ServiceSuite) seed(n int, subjectType, subjectID, causerID string, event activity.Event) {
	for i := range n {
		err := s.store.Append(s.ctx, activity.Record{
			ID:          fmt.Sprintf("%s-%s-%s-%03d", subjectType, subjectID, event, i),
			LogChannel:  subjectType,
			Event:       event,
			SubjectType: subjectType,
			SubjectID:   subjectID,
			CauserType:  "user",
			CauserID:    causerID,
			CreatedAt:   base.Add(time.Duration(s.store.Len()) * time.Minute),
		})
		s.Require().NoError(err)
	}
}

func (s *ServiceSuite) TestSearchClampsLimit() {
	s.seed(250, "wedding", "7", "42", activity.EventUpdated)

	res, err := s.svc.Search(s.ctx, activity.Filter{})
	s.Require().NoError(err)
	s.Len(res.Records, DefaultLimit)
	s.True(res.HasMore)

	res, err = s.svc.Search(s.ctx, activity.Filter{Limit: 1000})
	s.Require().NoError(err)
	s.Len(res.Records, MaxLimit)
	s.Equal(MaxLimit, res.Limit)

	res, err = s.svc.Search(s.ctx, activity.Filter{Limit: 100, Offset: 200})
	s.Require().NoError(err)
	s.Len(res.Records, 50)
	s.False(res.HasMore)
}

func (s *ServiceSuite) TestSearchFilters() {
	s.seed(3, "wedding", "7", "42", activity.EventCreated)
	s.seed(2, "order", "9", "42", activity.EventUpdated)
	s.seed(1, "wedding", "8", "43", activity.EventDeleted)

	res, err := s.svc.Search(s.ctx, activity.Filter{LogChannel: "wedding"})
	s.Require().NoError(err)
	s.Len(res.Records, 4)

	res, err = s.svc.Search(s.ctx, activity.Filter{Events: []activity.Event{activity.EventUpdated, activity.EventDeleted}})
	s.Require().NoError(err)
	s.Len(res.Records, 3)

	res, err = s.svc.Search(s.ctx, activity.Filter{Since: base.Add(3 * time.Minute), Until: base.Add(4 * time.Minute)})
	s.Require().NoError(err)
	s.Len(res.Records, 2)
	s.Equal(activity.EventUpdated, res.Records[0].Event)
	s.True(res.Records[0].CreatedAt.After(res.Records[1].CreatedAt), "newest first by default")
}

func (s *ServiceSuite) TestSearchChannelAndEventNewestFirst() {
	s.seed(2, "wedding", "7", "42", activity.EventCreated)
	s.seed(2, "wedding", "7", "42", activity.EventUpdated)
	s.seed(2, "order", "9", "42", activity.EventCreated)
	s.seed(1, "wedding", "8", "43", activity.EventCreated)

	for _, channel := range []string{"wedding", " Wedding "} {
		res, err := s.svc.Search(s.ctx, activity.Filter{
			LogChannel: channel,
			Events:     []activity.Event{activity.EventCreated},
		})
		s.Require().NoError(err)
		s.Require().Len(res.Records, 3, "channel %q", channel)
		s.Equal("wedding-8-created-000", res.Records[0].ID)
		s.Equal("wedding-7-created-001", res.Records[1].ID)
		s.Equal("wedding-7-created-000", res.Records[2].ID)
		for _, r := range res.Records {
			s.Equal("wedding", r.LogChannel)
			s.Equal(activity.EventCreated, r.Event)
		}
	}

	res, err := s.svc.Search(s.ctx, activity.Filter{SubjectType: "ORDER"})
	s.Require().NoError(err)
	s.Len(res.Records, 2)
}

func (s *ServiceSuite) TestSearchValidation() {
	_, err := s.svc.Search(s.ctx, activity.Filter{Since: base.Add(time.Hour), Until: base})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = s.svc.Search(s.ctx, activity.Filter{Events: []activity.Event{"archived"}})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))

	_, err = s.svc.Search(s.ctx, activity.Filter{Order: "sideways"})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestForSubject() {
	s.seed(260, "wedding", "7", "42", activity.EventUpdated)
	s.seed(1, "wedding", "8", "42", activity.EventCreated)

	res, err := s.svc.ForSubject(s.ctx, activity.SubjectRef{Type: "Wedding", ID: "7"}, Page{})
	s.Require().NoError(err)
	s.Len(res.Records, DefaultLimit)

	res, err = s.svc.ForSubject(s.ctx, activity.SubjectRef{Type: "wedding", ID: "7"}, Page{Unbounded: true, Order: activity.OrderOldest})
	s.Require().NoError(err)
	s.Len(res.Records, 260)
	s.False(res.HasMore)
	s.True(res.Records[0].CreatedAt.Before(res.Records[259].CreatedAt))

	_, err = s.svc.ForSubject(s.ctx, activity.SubjectRef{Type: "wedding"}, Page{})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestForCauser() {
	s.seed(2, "wedding", "7", "42", activity.EventUpdated)
	s.seed(1, "order", "9", "43", activity.EventCreated)

	res, err := s.svc.ForCauser(s.ctx, activity.Actor{Type: "user", ID: "42"}, Page{Unbounded: true})
	s.Require().NoError(err)
	s.Len(res.Records, 2)
	s.Equal(DefaultLimit, res.Limit, "unbounded is ignored outside subject history")

	_, err = s.svc.ForCauser(s.ctx, activity.Actor{ID: "42"}, Page{})
	s.True(dErrors.Is(err, dErrors.CodeBadRequest))
}

func TestSearchStoreFailureIsInternal(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := New(store, nil).Search(context.Background(), activity.Filter{})
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInternal, dErrors.CodeOf(err))
}

func TestSearchAsksStoreForOneExtraRow(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	store.EXPECT().Search(gomock.Any(), activity.Filter{Limit: 11, Offset: 5}).Return([]activity.Record{}, nil)

	res, err := New(store, nil).Search(context.Background(), activity.Filter{Limit: 10, Offset: 5})
	require.NoError(t, err)
	assert.Equal(t, 10, res.Limit)
	assert.Empty(t, res.Records)
	assert.False(t, res.HasMore)
}
