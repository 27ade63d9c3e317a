// Package fallback produces synthetic results when no upstream can answer.
package fallback

import (
	"fmt"
	"math/rand/v2"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nuestro-pulso/pulso-search/internal/clock"
	"github.com/nuestro-pulso/pulso-search/internal/model"
	"github.com/nuestro-pulso/pulso-search/internal/source"
)

// searchURL is where synthetic records link to; they have no watch page.
const searchURL = "https://www.youtube.com/results?search_query="

// Source is anything that can stand in for an upstream.
type Source interface {
	Generate(q model.Query, count int) []model.ResultRecord
}

const (
	defaultTopic = "Colombia"
	liveChance   = 0.10
	maxAgeHours  = 72
)

var channels = []string{
	"Noticias Caracol", "Canal RCN", "El Tiempo", "Semana", "Noticias Uno", "Canal Capital",
}

type template struct {
	title       string
	description string
	category    string
}

var videoTemplates = []template{
	{"Lo último sobre %s: análisis del día", "Resumen y análisis de los hechos más recientes sobre %s, con expertos invitados.", "Noticias"},
	{"%s: debate en el Congreso", "Las bancadas discuten el impacto de %s en la agenda legislativa y en las regiones.", "Política"},
	{"Entrevista exclusiva: qué significa %s para los ciudadanos", "Conversamos con líderes sociales sobre %s y sus efectos en la vida cotidiana.", "Entrevistas"},
	{"Reportaje especial desde las regiones: %s", "Un recorrido por los territorios para entender %s desde la mirada de sus habitantes.", "Reportajes"},
	{"Cifras y datos: %s en contexto", "Los números detrás de %s explicados paso a paso.", "Datos"},
	{"Opinión: las claves de %s esta semana", "Columnistas y analistas ponen en contexto %s.", "Opinión"},
	{"En vivo: rueda de prensa sobre %s", "Transmisión de la rueda de prensa oficial sobre %s.", "En vivo"},
	{"Verificamos: lo falso y lo cierto de %s", "Equipo de verificación revisa las afirmaciones que circulan sobre %s.", "Verificación"},
}

// Generator builds plausible video records from rotating templates. Records
// are scored with the same formula as upstream ones.
type Generator struct {
	mu  sync.Mutex
	src *rand.ChaCha8
	rng *rand.Rand
	clk clock.Clock
}

// NewGenerator returns a generator seeded for reproducible output.
func NewGenerator(clk clock.Clock, seed uint64) *Generator {
	var s [32]byte
	for i := 0; i < 8; i++ {
		s[i] = byte(seed >> (8 * i))
	}
	src := rand.NewChaCha8(s)
	return &Generator{src: src, rng: rand.New(src), clk: clk}
}

// Generate returns exactly count records tagged as fallback.
func (g *Generator) Generate(q model.Query, count int) []model.ResultRecord {
	if count <= 0 {
		return nil
	}
	topic := q.Term
	if topic == "" {
		topic = defaultTopic
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	out := make([]model.ResultRecord, 0, count)
	for i := 0; i < count; i++ {
		tpl := videoTemplates[i%len(videoTemplates)]
		title := fmt.Sprintf(tpl.title, topic)
		if round := i / len(videoTemplates); round > 0 {
			title = fmt.Sprintf("Especial %d · %s", round+1, title)
		}
		views := int64(1000 + g.rng.IntN(499_000))
		likes := int64(float64(views) * (0.025 + g.rng.Float64()*0.01))
		published := now.Add(-time.Duration(g.rng.IntN(maxAgeHours*60)) * time.Minute)
		id := g.newID()

		out = append(out, model.ResultRecord{
			ID:             id,
			Title:          title,
			Description:    source.TruncateDescription(fmt.Sprintf(tpl.description, topic)),
			Source:         channels[i%len(channels)],
			PublishedAt:    published,
			Link:           searchURL + url.QueryEscape(topic),
			Duration:       source.FormatDuration(5*60 + g.rng.IntN(25*60+1)),
			ViewCount:      views,
			LikeCount:      likes,
			Category:       tpl.category,
			RelevanceScore: source.Score(views, likes, published, now),
			IsLive:         g.rng.Float64() < liveChance,
			Trending:       q.Mode == model.ModeTrending,
			Origin:         model.OriginFallback,
		})
	}
	return out
}

func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.src)
	if err != nil {
		return uuid.NewString()
	}
	return "demo-" + id.String()[:8]
}
