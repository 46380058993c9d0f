package model

const MaxInt = int(^uint(0) >> 1)

type PageReq struct {
	Page    int `json:"page" form:"page"`
	PerPage int `json:"per_page" form:"per_page"`
}

func (p *PageReq) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = MaxInt
	}
}

// Paginate returns the total and the objects of the requested page.
// Validate must have been called.
func (p *PageReq) Paginate(objs []ArchiveObj) (int64, []ArchiveObj) {
	total := len(objs)
	start := (p.Page - 1) * p.PerPage
	if p.Page > 1 && start/p.PerPage != p.Page-1 || start >= total {
		return int64(total), []ArchiveObj{}
	}
	end := start + p.PerPage
	if end > total || end < start {
		end = total
	}
	return int64(total), objs[start:end]
}
