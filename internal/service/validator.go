// internal/service/validator.go
package service

import (
    "context"

    "github.com/ralborta/nutryhome-backend/internal/config"
    appErrors "github.com/ralborta/nutryhome-backend/internal/errors"
)

// ConfigValidator gates every batch operation on the external API's
// credentials being present and usable.
type ConfigValidator struct {
    Config *config.Config
    Client VoiceAPI
}

// CheckStatic verifies the required credentials/identifiers are set. The
// error lists every missing name, not just the first.
func (v *ConfigValidator) CheckStatic() error {
    missing := v.Config.MissingElevenLabs()
    if len(missing) > 0 {
        return appErrors.NewMissingConfig(missing)
    }
    return nil
}

// Preflight performs three authenticated read probes: account settings, the
// configured agent and the configured phone number. Each failure names the
// resource that is unreachable. All three must pass.
func (v *ConfigValidator) Preflight(ctx context.Context) error {
    if _, err := v.Client.GetSettings(ctx); err != nil {
        return appErrors.NewPreflight("account settings", err)
    }
    if _, err := v.Client.GetAgent(ctx, v.Config.ElevenLabsAgentID); err != nil {
        return appErrors.NewPreflight("agent "+v.Config.ElevenLabsAgentID, err)
    }
    if _, err := v.Client.GetPhoneNumber(ctx, v.Config.ElevenLabsPhoneNumberID); err != nil {
        return appErrors.NewPreflight("phone number "+v.Config.ElevenLabsPhoneNumberID, err)
    }
    return nil
}

// Assert runs the static check then the live preflight.
func (v *ConfigValidator) Assert(ctx context.Context) error {
    if err := v.CheckStatic(); err != nil {
        return err
    }
    return v.Preflight(ctx)
}
