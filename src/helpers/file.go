package helpers

import (
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/dstrohschein/miniql/src/settings"
)

// FileExists reports whether filename exists and is a regular file.
// logger may be nil, in which case existence checks are silent.
func FileExists(filename string, logger *zap.SugaredLogger) bool {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	args := settings.GetSettings()

	info, err := os.Stat(filename)
	if err != nil {
		if os.IsNotExist(err) {
			if args.Debug && args.Verbose {
				logger.Infof("file does not exist: %s", filename)
			}
			return false
		}
		logger.Infof("error checking %s for existence: %s", filename, err)
		return false
	}
	return !info.IsDir()
}

// DeleteDataFile removes the single-file database at path.
func DeleteDataFile(path string) error {
	return os.Remove(path)
}

// EncodeBSON serializes a config overlay (settings.ConfigFile's
// contents) into BSON.
func EncodeBSON(data map[string]interface{}) ([]byte, error) {
	encoded, err := bson.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding BSON: %w", err)
	}
	return encoded, nil
}

// DecodeBSON reads a config overlay previously written by EncodeBSON.
func DecodeBSON(data []byte) (map[string]interface{}, error) {
	var decoded map[string]interface{}
	if err := bson.Unmarshal(data, &decoded); err != nil {
		return nil, fmt.Errorf("decoding BSON: %w", err)
	}
	return decoded, nil
}

// LoadConfigOverlay reads path (if present) as a BSON-encoded config
// overlay and merges recognized keys into settings.Arguments, returning
// the merged settings. A missing file is not an error — settings keeps
// its defaults.
func LoadConfigOverlay(path string, logger *zap.SugaredLogger) (*settings.Arguments, error) {
	current := settings.GetSettings()
	if !FileExists(path, logger) {
		return current, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config overlay %s: %w", path, err)
	}
	overlay, err := DecodeBSON(raw)
	if err != nil {
		return nil, err
	}

	merged := *current
	if v, ok := overlay["data_file"].(string); ok {
		merged.DataFile = v
	}
	if v, ok := overlay["min_degree"].(int32); ok {
		merged.MinDegree = int(v)
	}
	if v, ok := overlay["verbose"].(bool); ok {
		merged.Verbose = v
	}
	settings.UpdateSettings(merged)
	return settings.GetSettings(), nil
}
