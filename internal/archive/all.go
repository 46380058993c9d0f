package archive

import (
	_ "github.com/alist-org/arkit/internal/archive/iso9660"
	_ "github.com/alist-org/arkit/internal/archive/rar"
	_ "github.com/alist-org/arkit/internal/archive/sevenzip"
	_ "github.com/alist-org/arkit/internal/archive/single"
	_ "github.com/alist-org/arkit/internal/archive/tar"
	_ "github.com/alist-org/arkit/internal/archive/zip"
)
