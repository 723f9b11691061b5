package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"postcheck/internal/prefix/handler/mocks"
	"postcheck/internal/prefix/models"
	"postcheck/internal/prefix/store"
	dErrors "postcheck/pkg/domain-errors"
	"postcheck/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type PrefixHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestPrefixHandlerSuite(t *testing.T) {
	suite.Run(t, new(PrefixHandlerSuite))
}

func (s *PrefixHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)

	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *PrefixHandlerSuite) TestList() {
	s.Run("returns the registry as an array", func() {
		s.service.EXPECT().List(gomock.Any()).Return([]models.Prefix{"10", "11"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`["10","11"]`, rr.Body.String())
	})

	s.Run("empty registry is an empty array", func() {
		s.service.EXPECT().List(gomock.Any()).Return([]models.Prefix{}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`[]`, rr.Body.String())
	})

	s.Run("storage failure is a 500 without details", func() {
		s.service.EXPECT().List(gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("disk on fire"), dErrors.CodeInternal, "failed to list prefixes"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes"))

		s.NotContains(rr.Body.String(), "disk on fire")
		testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, string(dErrors.CodeInternal))
	})
}

func (s *PrefixHandlerSuite) TestAdd() {
	s.Run("created", func() {
		s.service.EXPECT().Add(gomock.Any(), "99").Return(models.Prefix("99"), nil)

		rr := testutil.DoRequest(s.router,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/postal_prefixes", map[string]string{"prefix": "99"}))

		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		s.JSONEq(`{"message":"Prefix 99 added successfully."}`, rr.Body.String())
	})

	s.Run("duplicate is a conflict", func() {
		s.service.EXPECT().Add(gomock.Any(), "10").
			Return(models.Prefix(""), dErrors.Wrap(store.ErrAlreadyUsed, dErrors.CodeConflict, "prefix 10 already exists"))

		rr := testutil.DoRequest(s.router,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/postal_prefixes", map[string]string{"prefix": "10"}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	s.Run("missing prefix key", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/postal_prefixes", map[string]string{"code": "10"}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("malformed body", func() {
		rr := testutil.DoRequest(s.router,
			testutil.NewRequestWithBody(s.T(), http.MethodPost, "/postal_prefixes", `{"prefix":`))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("validation failure", func() {
		s.service.EXPECT().Add(gomock.Any(), "").
			Return(models.Prefix(""), dErrors.New(dErrors.CodeValidation, "prefix cannot be empty"))

		rr := testutil.DoRequest(s.router,
			testutil.NewJSONRequest(s.T(), http.MethodPost, "/postal_prefixes", map[string]string{"prefix": ""}))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("non-JSON content type is rejected", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/postal_prefixes", "prefix=99")
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := testutil.DoRequest(s.router, req)

		testutil.AssertStatus(s.T(), rr, http.StatusUnsupportedMediaType)
	})
}

func (s *PrefixHandlerSuite) TestGet() {
	s.Run("found", func() {
		s.service.EXPECT().Get(gomock.Any(), "10").Return(models.Prefix("10"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes/10"))

		testutil.AssertStatusOK(s.T(), rr)
		testutil.AssertJSONContains(s.T(), rr, "prefix", "10")
	})

	s.Run("not found", func() {
		s.service.EXPECT().Get(gomock.Any(), "12").
			Return(models.Prefix(""), dErrors.New(dErrors.CodeNotFound, "prefix 12 not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes/12"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})
}

func (s *PrefixHandlerSuite) TestRemove() {
	s.Run("deleted", func() {
		s.service.EXPECT().Remove(gomock.Any(), "10").Return(models.Prefix("10"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/postal_prefixes/10"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"message":"Prefix 10 deleted successfully."}`, rr.Body.String())
	})

	s.Run("missing prefix is a 404", func() {
		s.service.EXPECT().Remove(gomock.Any(), "42").
			Return(models.Prefix(""), dErrors.Wrap(store.ErrNotFound, dErrors.CodeNotFound, "prefix 42 not found"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/postal_prefixes/42"))

		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("escaped path segments are decoded", func() {
		s.service.EXPECT().Remove(gomock.Any(), "a b").Return(models.Prefix("a b"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/postal_prefixes/a%20b"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(fmt.Sprintf(`{"message":"Prefix %s deleted successfully."}`, "a b"), rr.Body.String())
	})
	s.Run("a literal percent sign is decoded exactly once", func() {
		s.service.EXPECT().Remove(gomock.Any(), "a%41").Return(models.Prefix("a%41"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/postal_prefixes/a%2541"))

		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"message":"Prefix a%41 deleted successfully."}`, rr.Body.String())
	})

	s.Run("escaped slash stays inside the segment", func() {
		s.service.EXPECT().Remove(gomock.Any(), "a/b").Return(models.Prefix("a/b"), nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodDelete, "/postal_prefixes/a%2Fb"))

		testutil.AssertStatusOK(s.T(), rr)
	})
}

func (s *PrefixHandlerSuite) TestGetPercentPrefix() {
	s.service.EXPECT().Get(gomock.Any(), "%").Return(models.Prefix("%"), nil)

	rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/postal_prefixes/%25"))

	testutil.AssertStatusOK(s.T(), rr)
	testutil.AssertJSONContains(s.T(), rr, "prefix", "%")
}
