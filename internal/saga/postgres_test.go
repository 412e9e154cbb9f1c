package saga_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/Athul-Krishna/ProjectTransac/internal/saga"
	"github.com/Athul-Krishna/ProjectTransac/pkg/testsuite"
)

type StoreIntegrationSuite struct {
	testsuite.BaseSuite

	Store *saga.PostgresStore
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.BaseSuite.SetupInfrastructure("../../migrations")
}

func (s *StoreIntegrationSuite) TearDownSuite() {
	s.BaseSuite.TearDownInfrastructure()
}

func (s *StoreIntegrationSuite) SetupTest() {
	s.BaseSuite.TruncateTable("saga_instances")

	s.Store = saga.NewPostgresStore(s.DbPool, zap.NewNop())
}

func (s *StoreIntegrationSuite) instance(state saga.LifecycleState) saga.Instance {
	return saga.Instance{
		OrderID:   "order-1",
		UserID:    "user-1",
		ProductID: "product-1",
		Quantity:  2,
		AddressID: "address-1",
		State:     state,
	}
}

func (s *StoreIntegrationSuite) TestSaveAndLoadActive() {
	s.Require().NoError(s.Store.Save(s.Ctx, s.instance(saga.StateAwaitingReservation)))

	active, err := s.Store.LoadActive(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Require().Equal(saga.StateAwaitingReservation, active[0].State)
	s.Require().Equal("product-1", active[0].ProductID)
}

func (s *StoreIntegrationSuite) TestSaveUpserts() {
	s.Require().NoError(s.Store.Save(s.Ctx, s.instance(saga.StateAwaitingReservation)))

	armed := s.instance(saga.StateAwaitingPayment)
	armed.DeadlineArmed = true
	s.Require().NoError(s.Store.Save(s.Ctx, armed))

	active, err := s.Store.LoadActive(s.Ctx)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Require().Equal(saga.StateAwaitingPayment, active[0].State)
	s.Require().True(active[0].DeadlineArmed)
}

func (s *StoreIntegrationSuite) TestDelete() {
	s.Require().NoError(s.Store.Save(s.Ctx, s.instance(saga.StateAwaitingReservation)))
	s.Require().NoError(s.Store.Delete(s.Ctx, "order-1"))

	active, err := s.Store.LoadActive(s.Ctx)
	s.Require().NoError(err)
	s.Require().Empty(active)
}

func TestStoreIntegrationSuite(t *testing.T) {
	suite.Run(t, new(StoreIntegrationSuite))
}
