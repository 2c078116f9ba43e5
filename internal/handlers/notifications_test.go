package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"coinvest/internal/models"
)

func TestListNotifications(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{
		listByUserFn: func(_ context.Context, userID string, limit, offset int) ([]models.Notification, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			return []models.Notification{
				{ID: "n-1", Title: "Profit credited", Type: "success", IsRead: false},
			}, nil
		},
	}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodGet, "/notifications", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if len(resp) != 1 || resp[0]["title"] != "Profit credited" {
		t.Fatalf("response = %v", resp)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	handler := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubPlanStore{}, stubInvestmentStore{}, stubTransactionStore{}, stubNotificationStore{
		markReadFn: func(_ context.Context, userID, notificationID string) (int64, error) {
			if userID != "user-1" {
				t.Fatalf("unexpected user %q", userID)
			}
			if notificationID == "n-mine" {
				return 1, nil
			}
			return 0, nil
		},
	}, stubAccrualRunStore{}, stubAdminStore{}, stubAuditStore{}, stubService{}, stubMarketFeed{})

	rr := serveRoute(t, handler, http.MethodPost, "/notifications/n-mine/read", "user-1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	// A notification owned by someone else reports not found.
	rr = serveRoute(t, handler, http.MethodPost, "/notifications/n-theirs/read", "user-1", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
