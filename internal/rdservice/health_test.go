package rdservice

import (
	"context"
	"net/http"
	"reflect"
	"testing"
)

func TestTroubleshooting(t *testing.T) {
	refused := Troubleshooting(ClassConnectionRefused)
	timeout := Troubleshooting(ClassTimeout)

	if len(refused) == 0 || len(timeout) == 0 {
		t.Fatal("every class needs troubleshooting advice")
	}
	if refused[0] != "RD service is not running" {
		t.Errorf("refused[0] = %q", refused[0])
	}
	if reflect.DeepEqual(refused, timeout) {
		t.Error("refused and timeout advice should differ")
	}
	for _, class := range []ErrorClass{ClassHostUnreachable, ClassHostNotFound, ClassUnknown} {
		if len(Troubleshooting(class)) == 0 {
			t.Errorf("no advice for %s", class)
		}
	}
	if !reflect.DeepEqual(Troubleshooting(ErrorClass(99)), Troubleshooting(ClassUnknown)) {
		t.Error("unmapped classes should fall back to Unknown advice")
	}

	refused[0] = "changed"
	if Troubleshooting(ClassConnectionRefused)[0] == "changed" {
		t.Error("Troubleshooting() should return a copy")
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	sender := &fakeSender{handler: func(Endpoint, Request) (*Response, error) {
		return respond(http.StatusOK, sampleInfoBody), nil
	}}

	report := NewHealthChecker(sender).Check(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort})

	if !report.Healthy() {
		t.Fatalf("report = %+v, want healthy", report)
	}
	if report.ErrorClass != nil || len(report.Troubleshooting) != 0 {
		t.Errorf("healthy report should carry no error: %+v", report)
	}
	if report.Info.Len() != 3 {
		t.Errorf("Info params = %d, want 3", report.Info.Len())
	}
	if report.Endpoint != "127.0.0.1:11100" {
		t.Errorf("Endpoint = %s", report.Endpoint)
	}
}

func TestHealthCheck_Unhealthy(t *testing.T) {
	tests := []struct {
		name      string
		class     ErrorClass
		wantFirst string
	}{
		{"refused", ClassConnectionRefused, "RD service is not running"},
		{"timeout", ClassTimeout, "RD service is unresponsive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{handler: func(Endpoint, Request) (*Response, error) {
				return nil, transportError(t, tt.class)
			}}

			report := NewHealthChecker(sender).Check(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort})

			if report.Healthy() {
				t.Fatal("report should be unhealthy")
			}
			if report.ErrorClass == nil || *report.ErrorClass != tt.class {
				t.Errorf("ErrorClass = %v, want %s", report.ErrorClass, tt.class)
			}
			if len(report.Troubleshooting) == 0 || report.Troubleshooting[0] != tt.wantFirst {
				t.Errorf("Troubleshooting = %v", report.Troubleshooting)
			}
		})
	}
}

func TestHealthCheck_NotAnRDService(t *testing.T) {
	sender := &fakeSender{handler: func(Endpoint, Request) (*Response, error) {
		return respond(http.StatusOK, "<html/>"), nil
	}}

	report := NewHealthChecker(sender).Check(context.Background(), Endpoint{Host: DefaultHost, Port: DefaultPort})

	if report.Healthy() {
		t.Fatal("report should be unhealthy")
	}
	if report.ErrorClass != nil {
		t.Errorf("ErrorClass = %v, want nil for a foreign service", *report.ErrorClass)
	}
	if len(report.Troubleshooting) == 0 {
		t.Error("foreign service should carry advice")
	}
}

func TestRejectedReport(t *testing.T) {
	ep := Endpoint{Host: "192.0.2.10", Port: DefaultPort}
	tests := []struct {
		name string
		err  error
		want []string
	}{
		{"remote host", NewRemoteHostError("192.0.2.10"), PolicyTroubleshooting(PolicyRemoteHost)},
		{"invalid port", NewInvalidPortError(0), PolicyTroubleshooting(PolicyInvalidPort)},
		{"other policy", NewPolicyError("bad request"), PolicyTroubleshooting(PolicyOther)},
		{"transport", transportError(t, ClassTimeout), Troubleshooting(ClassTimeout)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := RejectedReport(ep, tt.err)
			if report.Healthy() {
				t.Fatal("report should be unhealthy")
			}
			if !reflect.DeepEqual(report.Troubleshooting, tt.want) {
				t.Errorf("Troubleshooting = %v, want %v", report.Troubleshooting, tt.want)
			}
			if report.Endpoint != ep.Address() || report.ErrorClass == nil {
				t.Errorf("report = %+v", report)
			}
		})
	}

	if reflect.DeepEqual(PolicyTroubleshooting(PolicyRemoteHost), PolicyTroubleshooting(PolicyInvalidPort)) {
		t.Error("remote host and invalid port advice should differ")
	}
}
