package test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/vuonxanh/plantstore/core/discount"
)

type discountTest struct {
	*TestEnv
}

func TestDiscount(t *testing.T) {
	env, err := NewTestEnv(t)
	if err != nil {
		t.Fatalf("initializing test env: %v", err)
	}

	dt := &discountTest{env}

	d := dt.createDiscountOK(t, map[string]any{
		"code":              "spring10",
		"kind":              "percentage",
		"value":             10,
		"maxDiscountAmount": 50_000,
	})
	if d.Code != "SPRING10" {
		t.Fatalf("expected normalized code SPRING10, got %q", d.Code)
	}

	// Lookup is case-insensitive; the cap clamps the raw percentage.
	res := dt.validateOK(t, "Spring10", 1_000_000)
	if res.Amount != 50_000 || res.FinalTotal != 950_000 {
		t.Fatalf("expected 50000 off 1000000, got %+v", res)
	}

	// Unknown code.
	dt.validateFail(t, "NOPE", 1_000_000, http.StatusNotFound)

	// Missing input.
	dt.validateFail(t, "", 1_000_000, http.StatusBadRequest)
	dt.validateFail(t, "SPRING10", 0, http.StatusBadRequest)

	// Expired code.
	past := time.Now().UTC().Add(-time.Hour)
	old := dt.createDiscountOK(t, map[string]any{
		"code":    "OLDCODE",
		"kind":    "fixed",
		"value":   20_000,
		"validTo": past.Format(time.RFC3339),
	})
	dt.validateFail(t, "OLDCODE", 1_000_000, http.StatusUnprocessableEntity)

	// Updates hold the percentage bound: neither a raw value above 100 nor a
	// kind flip that leaves a currency-sized value may get through.
	dt.updateDiscountExpect(t, d.ID, map[string]any{"value": 150}, http.StatusUnprocessableEntity)
	dt.updateDiscountExpect(t, old.ID, map[string]any{"kind": "percentage"}, http.StatusUnprocessableEntity)
	dt.updateDiscountExpect(t, d.ID, map[string]any{"value": 15}, http.StatusOK)

	res = dt.validateOK(t, "SPRING10", 1_000_000)
	if res.Amount != 50_000 {
		t.Fatalf("expected 15%% still capped at 50000, got %d", res.Amount)
	}

	// Disabled code.
	body, _ := json.Marshal(map[string]any{"active": false})
	r, err := http.NewRequest(http.MethodPut, dt.URL+"/discounts/"+d.ID, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	if err := Login(dt.Server, dt.AdminEmail, dt.AdminPass); err != nil {
		t.Fatal(err)
	}
	w, err := dt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't disable discount: status code %s", w.Status)
	}
	if err := Logout(dt.Server); err != nil {
		t.Fatal(err)
	}

	dt.validateFail(t, "SPRING10", 1_000_000, http.StatusUnprocessableEntity)

	// Soft delete.
	gone := dt.createDiscountOK(t, map[string]any{
		"code":  "BYE5",
		"kind":  "fixed",
		"value": 5_000,
	})

	r, err = http.NewRequest(http.MethodDelete, dt.URL+"/discounts/"+gone.ID, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := Login(dt.Server, dt.AdminEmail, dt.AdminPass); err != nil {
		t.Fatal(err)
	}
	w, err = dt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()
	if w.StatusCode != http.StatusNoContent {
		t.Fatalf("can't delete discount: status code %s", w.Status)
	}
	if err := Logout(dt.Server); err != nil {
		t.Fatal(err)
	}

	dt.validateFail(t, "BYE5", 1_000_000, http.StatusUnprocessableEntity)
}

func (dt *discountTest) createDiscountOK(t *testing.T, fields map[string]any) discount.Discount {
	t.Helper()

	if err := Login(dt.Server, dt.AdminEmail, dt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(dt.Server)

	body, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}

	w, err := dt.Client().Post(dt.URL+"/discounts", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusCreated {
		t.Fatalf("can't create discount: status code %s", w.Status)
	}

	var d discount.Discount
	if err := json.NewDecoder(w.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}

	return d
}

func (dt *discountTest) updateDiscountExpect(t *testing.T, id string, fields map[string]any, wantStatus int) {
	t.Helper()

	if err := Login(dt.Server, dt.AdminEmail, dt.AdminPass); err != nil {
		t.Fatal(err)
	}
	defer Logout(dt.Server)

	body, err := json.Marshal(fields)
	if err != nil {
		t.Fatal(err)
	}

	r, err := http.NewRequest(http.MethodPut, dt.URL+"/discounts/"+id, bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}

	w, err := dt.Client().Do(r)
	if err != nil {
		t.Fatal(err)
	}
	w.Body.Close()

	if w.StatusCode != wantStatus {
		t.Fatalf("update discount[%s]: expected status %d, got %s", id, wantStatus, w.Status)
	}
}

func (dt *discountTest) validateOK(t *testing.T, code string, total int) discount.Result {
	t.Helper()

	body, err := json.Marshal(map[string]any{"code": code, "total": total})
	if err != nil {
		t.Fatal(err)
	}

	w, err := dt.Client().Post(dt.URL+"/discounts/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != http.StatusOK {
		t.Fatalf("can't validate discount: status code %s", w.Status)
	}

	var res discount.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}

	return res
}

func (dt *discountTest) validateFail(t *testing.T, code string, total int, wantStatus int) {
	t.Helper()

	body, err := json.Marshal(map[string]any{"code": code, "total": total})
	if err != nil {
		t.Fatal(err)
	}

	w, err := dt.Client().Post(dt.URL+"/discounts/validate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Body.Close()

	if w.StatusCode != wantStatus {
		t.Fatalf("validate(%q, %d): expected status %d, got %s", code, total, wantStatus, w.Status)
	}

	var er struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&er); err != nil {
		t.Fatal(err)
	}
	if er.Error == "" {
		t.Fatal("expected a user-displayable error message")
	}
}
