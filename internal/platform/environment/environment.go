// Package environment resolves, once at process start, which logical stage
// and connectivity mode every remote call should use. The result is passed
// down explicitly; nothing below this package sniffs the process environment
// to decide where a collaborator lives.
package environment

import (
	"os"

	"github.com/jawssame7/taskstack/internal/platform/env"
)

// Mode says whether collaborators are reached through the local emulation
// endpoints or the real remote services.
type Mode string

const (
	ModeLocal  Mode = "local"
	ModeRemote Mode = "remote"
)

// Stage names.
const (
	StageLocal   = "local"
	StageDev     = "dev"
	StageStaging = "staging"
	StageProd    = "prod"
)

const (
	// Placeholder credentials accepted by the local emulation endpoints.
	localAccessKey = "test"
	localSecretKey = "test"
	localAccountID = "000000000000"

	defaultRegion       = "us-east-1"
	defaultEmulatorHost = "localhost"
)

// Environment is the resolved deployment context.
type Environment struct {
	Stage        string
	Mode         Mode
	Region       string
	AccountID    string
	EmulatorHost string

	// Static placeholder credentials, set only in local mode. In remote
	// mode they stay empty and each client falls back to its ambient
	// credential chain.
	AccessKey string
	SecretKey string
}

// Local reports whether collaborators are emulated.
func (e Environment) Local() bool { return e.Mode == ModeLocal }

// Resolve picks the stage and connectivity mode with a fixed precedence:
//
//  1. FORCE_REMOTE wins unconditionally and selects remote mode, even when
//     an emulator host is visible.
//  2. STAGE, when set, overrides the stage; otherwise APP_ENV is mapped
//     (local, development, staging, production) and defaults to dev.
//  3. Absent the force flag, a set LOCAL_EMULATOR_HOST or a local/dev stage
//     selects local mode with placeholder credentials.
func Resolve() Environment {
	e := Environment{
		Stage:     resolveStage(),
		Region:    env.String("REGION", defaultRegion),
		AccountID: env.String("ACCOUNT_ID", localAccountID),
	}

	emulatorHost := os.Getenv("LOCAL_EMULATOR_HOST")
	emulatorSet := emulatorHost != ""
	if emulatorHost == "" {
		emulatorHost = defaultEmulatorHost
	}
	e.EmulatorHost = emulatorHost

	switch {
	case env.Bool("FORCE_REMOTE", false):
		e.Mode = ModeRemote
	case emulatorSet, e.Stage == StageLocal, e.Stage == StageDev:
		e.Mode = ModeLocal
	default:
		e.Mode = ModeRemote
	}

	if e.Mode == ModeLocal {
		e.AccessKey = env.String("OBJECT_STORE_ACCESS_KEY", localAccessKey)
		e.SecretKey = env.String("OBJECT_STORE_SECRET_KEY", localSecretKey)
	} else {
		e.AccessKey = os.Getenv("OBJECT_STORE_ACCESS_KEY")
		e.SecretKey = os.Getenv("OBJECT_STORE_SECRET_KEY")
	}
	return e
}

func resolveStage() string {
	if stage := os.Getenv("STAGE"); stage != "" {
		return stage
	}
	switch os.Getenv("APP_ENV") {
	case "local":
		return StageLocal
	case "development":
		return StageDev
	case "staging":
		return StageStaging
	case "production":
		return StageProd
	default:
		return StageDev
	}
}
