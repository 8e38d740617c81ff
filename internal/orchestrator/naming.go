package orchestrator

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"berth/internal/manifest"
)

const (
	containerNameRandomBytes = 2
	containerNameMaxLen      = 255
)

// ContainerName generates a container name with a random suffix.
// Format: berth-{project}-{service}-{4-char-random}
func ContainerName(project, service string) string {
	suffix := randomContainerSuffix()
	project, service = truncateNameParts(project, service, suffix)
	return fmt.Sprintf("berth-%s-%s-%s", project, service, suffix)
}

// VolumeName returns the engine-level name of a declared volume,
// namespaced by project the way compose does.
func VolumeName(project, volume string) string {
	return project + "_" + volume
}

// NetworkName returns the engine-level name of a declared network.
func NetworkName(project, network string) string {
	return project + "_" + network
}

// ConfigHash fingerprints a canonical service spec so an unchanged Up can
// recognize containers it already created.
func ConfigHash(spec manifest.ServiceSpec) string {
	data, err := json.Marshal(manifest.CanonicalSpec(spec))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func randomContainerSuffix() string {
	b := make([]byte, containerNameRandomBytes)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%0*x", containerNameRandomBytes*2, 0)
	}
	return hex.EncodeToString(b)
}

func truncateNameParts(project, service, suffix string) (string, string) {
	const fixedLen = len("berth---")
	maxPartsLen := containerNameMaxLen - fixedLen - len(suffix)
	if maxPartsLen <= 0 {
		return "", ""
	}
	if len(project)+len(service) <= maxPartsLen {
		return project, service
	}

	over := len(project) + len(service) - maxPartsLen
	projectLen := len(project)
	if over < projectLen {
		return project[:projectLen-over], service
	}

	project = ""
	over -= projectLen
	if over < len(service) {
		service = service[:len(service)-over]
		return project, service
	}

	return project, ""
}
