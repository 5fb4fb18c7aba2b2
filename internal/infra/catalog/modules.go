package catalog

import "github.com/hellobible/hellobible/internal/domain"

// builtin is the module list bundled with the app.
var builtin = []domain.Module{
	{
		ID:          "fundamentos-da-fe",
		Title:       "Fundamentos da Fé",
		Description: "Os primeiros passos: criação, queda, graça e fé.",
		Lessons: []domain.Lesson{
			{ID: "criacao", Title: "No princípio", VerseRef: "Gênesis 1:1", Summary: "Deus como criador de todas as coisas."},
			{ID: "queda", Title: "A queda", VerseRef: "Gênesis 3:6", Summary: "A origem do pecado e suas consequências."},
			{ID: "graca", Title: "Salvos pela graça", VerseRef: "Efésios 2:8", Summary: "A salvação como dom de Deus."},
			{ID: "fe", Title: "O que é a fé", VerseRef: "Hebreus 11:1", Summary: "A certeza das coisas que se esperam."},
		},
	},
	{
		ID:          "vida-de-jesus",
		Title:       "A Vida de Jesus",
		Description: "Do nascimento à ressurreição nos evangelhos.",
		Lessons: []domain.Lesson{
			{ID: "nascimento", Title: "O nascimento", VerseRef: "Lucas 2:11", Summary: "O Salvador nasce em Belém."},
			{ID: "batismo", Title: "O batismo no Jordão", VerseRef: "Mateus 3:16", Summary: "O início do ministério público."},
			{ID: "sermao-do-monte", Title: "O Sermão do Monte", VerseRef: "Mateus 5:3", Summary: "As bem-aventuranças."},
			{ID: "milagres", Title: "Os milagres", VerseRef: "João 2:11", Summary: "Sinais que revelam a sua glória."},
			{ID: "cruz", Title: "A cruz", VerseRef: "João 19:30", Summary: "Está consumado."},
			{ID: "ressurreicao", Title: "A ressurreição", VerseRef: "Mateus 28:6", Summary: "Ele não está aqui, ressuscitou."},
		},
	},
	{
		ID:          "parabolas",
		Title:       "Parábolas de Jesus",
		Description: "Histórias simples com verdades profundas.",
		Lessons: []domain.Lesson{
			{ID: "semeador", Title: "O semeador", VerseRef: "Mateus 13:3", Summary: "Os quatro tipos de solo."},
			{ID: "bom-samaritano", Title: "O bom samaritano", VerseRef: "Lucas 10:33", Summary: "Quem é o meu próximo?"},
			{ID: "filho-prodigo", Title: "O filho pródigo", VerseRef: "Lucas 15:20", Summary: "O amor do Pai que espera."},
			{ID: "ovelha-perdida", Title: "A ovelha perdida", VerseRef: "Lucas 15:4", Summary: "A alegria por um que se arrepende."},
			{ID: "talentos", Title: "Os talentos", VerseRef: "Mateus 25:21", Summary: "Fidelidade no pouco."},
		},
	},
	{
		ID:          "salmos",
		Title:       "Salmos de Confiança",
		Description: "Orações e cânticos para os dias bons e difíceis.",
		Lessons: []domain.Lesson{
			{ID: "salmo-1", Title: "Os dois caminhos", VerseRef: "Salmos 1:1", Summary: "Bem-aventurado o homem que medita na lei."},
			{ID: "salmo-23", Title: "O Senhor é meu pastor", VerseRef: "Salmos 23:1", Summary: "Nada me faltará."},
			{ID: "salmo-46", Title: "Deus é o nosso refúgio", VerseRef: "Salmos 46:1", Summary: "Socorro bem presente na angústia."},
			{ID: "salmo-91", Title: "À sombra do Onipotente", VerseRef: "Salmos 91:1", Summary: "Proteção de quem habita no esconderijo."},
			{ID: "salmo-121", Title: "O socorro vem do Senhor", VerseRef: "Salmos 121:2", Summary: "Aquele que não dormita."},
		},
	},
	{
		ID:          "frutos-do-espirito",
		Title:       "Frutos do Espírito",
		Description: "O caráter que o Espírito produz no crente.",
		Lessons: []domain.Lesson{
			{ID: "amor", Title: "Amor", VerseRef: "1 Coríntios 13:4", Summary: "O amor é paciente, o amor é bondoso."},
			{ID: "alegria", Title: "Alegria", VerseRef: "Filipenses 4:4", Summary: "Alegrai-vos sempre no Senhor."},
			{ID: "paz", Title: "Paz", VerseRef: "João 14:27", Summary: "Deixo-vos a paz."},
			{ID: "paciencia", Title: "Paciência", VerseRef: "Tiago 1:4", Summary: "A perseverança completa a obra."},
			{ID: "dominio-proprio", Title: "Domínio próprio", VerseRef: "Gálatas 5:23", Summary: "Contra estas coisas não há lei."},
		},
	},
}
