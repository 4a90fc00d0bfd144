package gemini

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

type configWithPath struct {
	path   Path
	config *Config
}

// domainLeaf pairs a leaf's path (relative to its eventual domain root)
// with its FileData, used while partitioning the intermediate tree by
// domain.
type domainLeaf struct {
	path Path
	data FileData
}

// BuildTree reads settings.ConfigFiles (recursively, each config file
// may reference further config files of its own) and assembles the
// immutable per-domain UrlTree served for the lifetime of the process.
// It is the only place static files are read from disk outside of a
// request being served.
func BuildTree(settings *ServerSettings, logger *zap.Logger) (*UrlTree, error) {
	rootPath := NewPath(settings.Root)

	allConfig, err := readAllConfigFiles(settings.ConfigFiles, rootPath)
	if err != nil {
		return nil, err
	}

	allConfig, err = rejectDuplicateConfigLevels(allConfig, settings, logger)
	if err != nil {
		return nil, err
	}

	// Depth-ascending order: a parent directory's config must be applied
	// before its children's, since default_whitelist/blacklist rules
	// operate on whatever AddFilePath has already populated.
	sort.SliceStable(allConfig, func(i, j int) bool {
		return allConfig[i].path.Depth() < allConfig[j].path.Depth()
	})

	rootNode := &UrlNode{Name: settings.Root}
	if err := createTree(allConfig, rootNode, settings, logger); err != nil {
		return nil, err
	}

	rootDepth := rootPath.Depth()
	for _, c := range allConfig {
		rootNode.RemovePath(c.path.SkipComponents(rootDepth))
	}

	byDomain := make(map[string][]domainLeaf)
	seperateRoots(rootNode, RootPath(), byDomain)

	domains := make([]string, 0, len(byDomain))
	for domain := range byDomain {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	roots := make([]*UrlNode, 0, len(domains))
	for _, domain := range domains {
		domainRoot := &UrlNode{Name: domain}
		for _, pn := range byDomain[domain] {
			domainRoot.AddFilePath(pn.path, pn.data)
		}
		roots = append(roots, domainRoot)
	}

	return &UrlTree{Settings: settings, Roots: roots}, nil
}

func readAllConfigFiles(filenames []string, parentPath Path) ([]configWithPath, error) {
	var all []configWithPath
	for _, filename := range filenames {
		fullRelPath := parentPath.Original + "/" + filename
		cfg, err := LoadConfig(fullRelPath)
		if err != nil {
			return nil, err
		}
		selfPath := NewPath(fullRelPath)
		selfParent, ok := selfPath.Parent()
		if !ok {
			return nil, fmt.Errorf("config file %q has no parent directory", fullRelPath)
		}

		children, err := readAllConfigFiles(cfg.ConfigFiles, selfParent)
		if err != nil {
			return nil, err
		}
		all = append(all, children...)
		all = append(all, configWithPath{path: selfPath, config: cfg})
	}
	return all, nil
}

// rejectDuplicateConfigLevels enforces that at most one config file
// governs any single directory level. Under NeverExit it keeps the
// first and warns; otherwise it fails outright.
func rejectDuplicateConfigLevels(all []configWithPath, settings *ServerSettings, logger *zap.Logger) ([]configWithPath, error) {
	kept := make([]configWithPath, 0, len(all))
	seen := make(map[string]bool)
	for _, c := range all {
		parent, _ := c.path.Parent()
		key := strings.Join(parent.Components, "/")
		if seen[key] {
			if !settings.NeverExit {
				return nil, fmt.Errorf("there are two config files on the level %q", c.path.Original)
			}
			logger.Warn("multiple config files at the same level, only the first is used",
				zap.String("path", c.path.Original))
			continue
		}
		seen[key] = true
		kept = append(kept, c)
	}
	return kept, nil
}

func createTree(configList []configWithPath, rootNode *UrlNode, settings *ServerSettings, logger *zap.Logger) error {
	rootPath := NewPath(settings.Root)
	rootDepth := rootPath.Depth()

	for _, c := range configList {
		realConfigDirPath, ok := c.path.Parent()
		if !ok {
			return fmt.Errorf("config file %q has no parent directory", c.path.Original)
		}
		configDirPath := realConfigDirPath.SkipComponents(rootDepth)

		domain := settings.Domain
		if c.config.Domain != nil {
			domain = *c.config.Domain
		}

		preload := settings.DefaultPreload
		if c.config.DefaultPreload != nil {
			preload = *c.config.DefaultPreload
		}

		allFiles, err := findAllFiles(realConfigDirPath.Original, settings.NeverExit, logger)
		if err != nil {
			return err
		}
		allFilePaths := make([]Path, len(allFiles))
		for i, f := range allFiles {
			allFilePaths[i] = NewPath(f).SkipComponents(rootDepth)
		}

		for _, p := range allFilePaths {
			rootNode.RemovePath(p)
		}

		if c.config.DefaultWhitelist {
			for _, relPath := range allFilePaths {
				fullPath := PathFromParent(rootPath, relPath)
				data, err := buildNormalFileData(domain, fullPath, settings.NeverExit, preload, logger)
				if err != nil {
					return err
				}
				rootNode.AddFilePath(relPath, *data)
			}
			for _, rel := range c.config.Blacklist {
				filePath := rel
				if !configDirPath.IsRoot() {
					filePath = configDirPath.Original + "/" + rel
				}
				rootNode.RemovePath(NewPath(filePath))
			}
		} else {
			for _, rel := range c.config.Whitelist {
				var filePath Path
				if configDirPath.IsRoot() {
					filePath = NewPath(rel)
				} else {
					filePath = PathFromParent(configDirPath, NewPath(rel))
				}
				fullPath := PathFromParent(rootPath, filePath)
				data, err := buildNormalFileData(domain, fullPath, settings.NeverExit, preload, logger)
				if err != nil {
					return err
				}
				rootNode.AddFilePath(filePath, *data)
			}
		}

		for _, link := range c.config.Link {
			link := link
			relPath := link.LinkPath
			if link.Domain == nil {
				link.Domain = &domain
			}
			if link.Mimetype == nil {
				m := MimeByPath(NewPath(relPath))
				link.Mimetype = &m
			}
			linkPreload := preload
			if link.Preload != nil {
				linkPreload = *link.Preload
			}

			var linkPath, filePath Path
			if configDirPath.IsRoot() {
				linkPath = NewPath(relPath)
				filePath = PathFromParent(rootPath, NewPath(link.FilePath))
			} else {
				linkPath = PathFromParent(configDirPath, NewPath(relPath))
				filePath = PathFromParent(PathFromParent(rootPath, configDirPath), NewPath(link.FilePath))
			}
			link.FilePath = filePath.Original

			data, err := buildFileData(&link, settings.NeverExit, linkPreload, logger)
			if err != nil {
				return err
			}
			rootNode.AddFilePath(linkPath, *data)
		}

		for _, dyn := range c.config.Dynamic {
			dyn := dyn
			if dyn.Mimetype == nil {
				m := MimeByPath(NewPath(dyn.LinkPath))
				dyn.Mimetype = &m
			}
			if dyn.GenTime == nil {
				dyn.GenTime = &settings.MaxDynamicGenTime
			}
			if dyn.Domain == nil {
				dyn.Domain = &domain
			}

			var linkPath Path
			if configDirPath.IsRoot() {
				linkPath = NewPath(dyn.LinkPath)
			} else {
				linkPath = PathFromParent(configDirPath, NewPath(dyn.LinkPath))
			}

			if dyn.Cache && dyn.Query != nil {
				msg := fmt.Sprintf("a dynamic object in the %s config file has both cache enabled and a query", realConfigDirPath.Original)
				if settings.NeverExit {
					logger.Warn(msg)
				} else {
					return fmt.Errorf("%s", msg)
				}
			}

			data, err := buildFileData(&dyn, settings.NeverExit, false, logger)
			if err != nil {
				return err
			}
			rootNode.AddFilePath(linkPath, *data)
		}
	}
	return nil
}

func buildNormalFileData(domain string, path Path, neverExit, preload bool, logger *zap.Logger) (*FileData, error) {
	file := &NormalFile{Domain: domain, Path: path, Mimetype: MimeByPath(path)}
	return buildFileData(file, neverExit, preload, logger)
}

// buildFileData reads a leaf's bytes into memory when preload is set.
// Dynamic leaves are never preloaded: their body comes from invoking
// the program at request time.
func buildFileData(fileType FileType, neverExit, preload bool, logger *zap.Logger) (*FileData, error) {
	if _, ok := fileType.(*DynamicObject); ok {
		return &FileData{MetaData: fileType}, nil
	}
	if !preload {
		return &FileData{MetaData: fileType}, nil
	}

	var path string
	switch v := fileType.(type) {
	case *NormalFile:
		path = v.Path.Original
	case *LinkObject:
		path = v.FilePath
	}

	binary, err := os.ReadFile(path)
	if err != nil {
		msg := fmt.Sprintf("could not read the file at %s to memory: %v", path, err)
		if neverExit {
			logger.Warn(msg)
			return &FileData{MetaData: fileType}, nil
		}
		return nil, fmt.Errorf("%s", msg)
	}
	return &FileData{MetaData: fileType, Binary: binary}, nil
}

func seperateRoots(node *UrlNode, path Path, byDomain map[string][]domainLeaf) {
	for _, child := range node.Children {
		var relPath Path
		if path.IsRoot() {
			relPath = NewPath(child.Name)
		} else {
			relPath = PathFromParent(path, NewPath(child.Name))
		}

		if len(child.Children) != 0 {
			seperateRoots(child, relPath, byDomain)
		}
		if child.Data != nil {
			domain := child.Domain()
			byDomain[domain] = append(byDomain[domain], domainLeaf{relPath, *child.Data})
		}
	}
}

// findAllFiles walks dirPath recursively, returning every regular
// file's path with backslashes normalised to forward slashes.
func findAllFiles(dirPath string, neverExit bool, logger *zap.Logger) ([]string, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil {
		msg := fmt.Sprintf("the directory %s could not be read", dirPath)
		if neverExit {
			logger.Warn(msg)
			return nil, nil
		}
		return nil, fmt.Errorf("%s", msg)
	}

	var all []string
	for _, entry := range entries {
		path := filepath.Join(dirPath, entry.Name())
		if entry.IsDir() {
			sub, err := findAllFiles(path, neverExit, logger)
			if err != nil {
				return nil, err
			}
			all = append(all, sub...)
			continue
		}
		all = append(all, strings.ReplaceAll(path, "\\", "/"))
	}
	return all, nil
}
