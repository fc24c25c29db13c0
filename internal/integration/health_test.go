package integration_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type HealthTestSuite struct {
	BaseSuite
}

func TestHealthSuite(t *testing.T) {
	if testing.Short() {
		t.Skip()
	}

	suite.Run(t, new(HealthTestSuite))
}

func (s *HealthTestSuite) TestGetHealth() {
	scenario := Scenario{
		Name:           "reports every backing store as up",
		Method:         http.MethodGet,
		URL:            "/healthcheck",
		ExpectedStatus: http.StatusOK,
		ExpectedResponse: `{
			"status": "UP",
			"systemInfo": {"environment": "test"},
			"dependencies": {"postgres": "UP", "redis": "UP"}
		}`,
	}

	scenario.Run(s.T(), s.app)
}
