package environment

import "testing"

func clearAll(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"STAGE", "APP_ENV", "FORCE_REMOTE", "LOCAL_EMULATOR_HOST",
		"REGION", "ACCOUNT_ID", "OBJECT_STORE_ACCESS_KEY", "OBJECT_STORE_SECRET_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestResolve_DefaultsToLocalDev(t *testing.T) {
	clearAll(t)

	e := Resolve()
	if e.Stage != StageDev {
		t.Fatalf("expected stage dev, got %q", e.Stage)
	}
	if e.Mode != ModeLocal {
		t.Fatalf("expected local mode, got %q", e.Mode)
	}
	if e.AccessKey != "test" || e.SecretKey != "test" {
		t.Fatalf("expected placeholder credentials, got %q/%q", e.AccessKey, e.SecretKey)
	}
	if e.Region != "us-east-1" || e.AccountID != "000000000000" {
		t.Fatalf("unexpected region/account defaults: %+v", e)
	}
}

func TestResolve_StageOverrideBeatsAppEnv(t *testing.T) {
	clearAll(t)
	t.Setenv("STAGE", "staging")
	t.Setenv("APP_ENV", "production")

	e := Resolve()
	if e.Stage != StageStaging {
		t.Fatalf("STAGE override should win, got %q", e.Stage)
	}
	if e.Mode != ModeRemote {
		t.Fatalf("staging should resolve remote, got %q", e.Mode)
	}
}

func TestResolve_AppEnvMapping(t *testing.T) {
	cases := map[string]string{
		"local":       StageLocal,
		"development": StageDev,
		"staging":     StageStaging,
		"production":  StageProd,
		"nonsense":    StageDev,
	}
	for appEnv, want := range cases {
		t.Run(appEnv, func(t *testing.T) {
			clearAll(t)
			t.Setenv("APP_ENV", appEnv)
			if got := Resolve().Stage; got != want {
				t.Fatalf("APP_ENV=%s: expected stage %q, got %q", appEnv, want, got)
			}
		})
	}
}

func TestResolve_ForceRemoteWinsOverEmulatorHost(t *testing.T) {
	clearAll(t)
	t.Setenv("FORCE_REMOTE", "true")
	t.Setenv("LOCAL_EMULATOR_HOST", "emulator.internal")
	t.Setenv("STAGE", "local")

	e := Resolve()
	if e.Mode != ModeRemote {
		t.Fatalf("force flag must win, got mode %q", e.Mode)
	}
	if e.AccessKey != "" || e.SecretKey != "" {
		t.Fatalf("remote mode must not carry placeholder credentials, got %q/%q", e.AccessKey, e.SecretKey)
	}
}

func TestResolve_EmulatorHostSelectsLocalOnProdStage(t *testing.T) {
	clearAll(t)
	t.Setenv("STAGE", "prod")
	t.Setenv("LOCAL_EMULATOR_HOST", "emulator.internal")

	e := Resolve()
	if e.Mode != ModeLocal {
		t.Fatalf("emulator host should select local mode, got %q", e.Mode)
	}
	if e.EmulatorHost != "emulator.internal" {
		t.Fatalf("unexpected emulator host %q", e.EmulatorHost)
	}
}

func TestResolve_ProdStageIsRemote(t *testing.T) {
	clearAll(t)
	t.Setenv("APP_ENV", "production")

	e := Resolve()
	if e.Mode != ModeRemote {
		t.Fatalf("prod stage without emulator should be remote, got %q", e.Mode)
	}
}
