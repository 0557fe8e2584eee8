package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ginjaninja78/zreport/internal/config"
	"github.com/ginjaninja78/zreport/internal/types"
	"github.com/ginjaninja78/zreport/internal/xlsximport"
	"github.com/ginjaninja78/zreport/pkg/utils"
)

// inputFiles returns the files named on the command line, or every input in
// the configured input directory when none are named.
func inputFiles(cfg *config.MainConfig, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}

	files, err := utils.NewFileManager(cfg.InputDir, cfg.InputArchiveDir).DiscoverInputFiles()
	if err != nil {
		return nil, fmt.Errorf("failed to discover input files: %w", err)
	}
	return files, nil
}

// readRecords reads every record of an input file.
// Workbooks hold one record; JSON files hold one record, an array of
// records, or a whole log.
func readRecords(cfg *config.MainConfig, path string) ([]types.ReportRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		record, err := xlsximport.Import(path, cfg.XLSX)
		if err != nil {
			return nil, err
		}
		return []types.ReportRecord{record}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}

	records, err := types.DecodeRecords(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
