package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/regsweep/regsweep/pkg/types"
)

// mruThreshold is how many history entries a key may hold before it is
// flagged as a privacy concern.
const mruThreshold = 10

var mruPaths = []string{
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\OpenSaveMRU`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\LastVisitedPidlMRU`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\LastVisitedPidlMRULegacy`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\RecentDocs`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\RunMRU`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\TypedPaths`,
	`SOFTWARE\Microsoft\Windows\CurrentVersion\Explorer\ComDlg32\CIDSizeMRU`,
	`SOFTWARE\Microsoft\Office`,
}

// MRU finds most-recently-used history keys holding many entries. All MRU
// paths live under the current user hive.
type MRU struct {
	base
	deps Deps
}

func NewMRU(deps Deps) *MRU {
	return &MRU{base: newBase("mru", types.CategoryMRUEntry), deps: deps}
}

func (s *MRU) Scan(ctx context.Context, progress types.ScanProgress) ([]types.Issue, error) {
	var issues []types.Issue
	for _, sub := range mruPaths {
		if err := s.scanPath(ctx, sub, &issues, progress); err != nil {
			return issues, err
		}
	}
	return issues, nil
}

func (s *MRU) scanPath(ctx context.Context, sub string, issues *[]types.Issue, progress types.ScanProgress) error {
	if cancelled(ctx) {
		return cancelErr(ctx)
	}
	fullPath := types.JoinKeyPath(types.CurrentUser, sub)
	s.report(progress, fullPath, len(*issues))

	k := openRead(s.deps.Registry, types.CurrentUser, sub)
	if k == nil {
		return nil
	}
	defer k.Close()

	if values, err := k.Values(); err == nil {
		count := 0
		for _, v := range values {
			// MRUList/MRUListEx only hold ordering, not history.
			if v.Name == "MRUList" || v.Name == "MRUListEx" {
				continue
			}
			switch v.Data.(type) {
			case types.StringData, types.BinaryData:
				count++
			}
		}
		if count > mruThreshold {
			*issues = append(*issues, s.issue(
				fullPath, "",
				fmt.Sprintf("%d recent-file entries", count),
				"these entries record your recently used files",
				types.SeverityLow, false,
			))
		}
	}

	subkeys, err := k.Subkeys()
	if err != nil {
		return nil
	}
	for _, name := range subkeys {
		switch {
		case isMRUName(name):
			if err := s.scanPath(ctx, sub+`\`+name, issues, progress); err != nil {
				return err
			}
		case strings.Contains(sub, "Office"):
			// Office nests its history one level deeper, per application.
			child, err := k.OpenSubkey(name, types.AccessRead)
			if err != nil {
				continue
			}
			inner, err := child.Subkeys()
			child.Close()
			if err != nil {
				continue
			}
			for _, innerName := range inner {
				if isMRUName(innerName) {
					if err := s.scanPath(ctx, sub+`\`+name+`\`+innerName, issues, progress); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}

func isMRUName(name string) bool {
	return strings.Contains(name, "MRU") || strings.Contains(name, "Recent")
}
