// Package paginate slices a result set into pages.
package paginate

import "github.com/nuestro-pulso/pulso-search/internal/model"

// Paginate returns page (1-based) of rs. Pages outside [1, totalPages] and
// non-positive page sizes yield no items and hasMorePages=false.
func Paginate(rs model.ResultSet, page, pageSize int) model.Page {
	total := len(rs.Records)
	p := model.Page{
		Items:        []model.ResultRecord{},
		CurrentPage:  page,
		TotalResults: total,
	}
	if pageSize <= 0 {
		return p
	}
	p.TotalPages = (total + pageSize - 1) / pageSize
	if page < 1 || page > p.TotalPages {
		return p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	p.Items = append(p.Items, rs.Records[start:end]...)
	p.HasMorePages = page < p.TotalPages
	return p
}
