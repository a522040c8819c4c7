package settings

import "testing"

func TestConfig_EnsureDefaults_FillsZeroFields(t *testing.T) {
	var c Config
	c.EnsureDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() after EnsureDefaults() = %v, want nil", err)
	}
}

func TestConfig_EnsureDefaults_PreservesSetFields(t *testing.T) {
	c := Config{HandshakeMaxAttempts: 3}
	c.EnsureDefaults()
	if c.HandshakeMaxAttempts != 3 {
		t.Fatalf("HandshakeMaxAttempts = %d, want 3 (explicit value should survive EnsureDefaults)", c.HandshakeMaxAttempts)
	}
}

func TestConfig_Validate_RejectsZeroConfig(t *testing.T) {
	var c Config
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() on zero Config should fail")
	}
}

func TestConfig_Validate_RejectsAttemptIntervalAtOrAboveAliveWindow(t *testing.T) {
	c := Default()
	c.UDPAttemptInterval = c.UDPAliveWindow
	if err := c.Validate(); err == nil {
		t.Fatal("Validate() should reject UDPAttemptInterval >= UDPAliveWindow")
	}
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Default() is not valid: %v", err)
	}
}
